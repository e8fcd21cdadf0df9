// Package service contains the application services behind the inbound adapters.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
)

// RecordService implements the sandbox backend's CRUD semantics on top of a
// record.Store: ID generation on create, shallow merge on update, and
// returning the removed document on delete.
type RecordService struct {
	store  record.Store
	logger *slog.Logger
	mu     sync.Mutex // serializes read-modify-write sequences
}

// NewRecordService creates a new RecordService.
func NewRecordService(store record.Store, logger *slog.Logger) *RecordService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{
		store:  store,
		logger: logger,
	}
}

// List returns one page of a collection.
func (s *RecordService) List(ctx context.Context, collection string, q record.Query) ([]record.Document, error) {
	if err := record.ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, collection, q)
}

// Get returns a single document.
// Returns record.ErrNotFound if the document does not exist.
func (s *RecordService) Get(ctx context.Context, collection, id string) (record.Document, error) {
	if err := record.ValidateCollection(collection); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, collection, id)
}

// Create stores doc, assigning a UUID _id when the caller supplied none.
// Returns record.ErrDuplicateID if the supplied _id is taken.
func (s *RecordService) Create(ctx context.Context, collection string, doc record.Document) (record.Document, error) {
	if err := record.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", record.ErrInvalidDocument)
	}

	doc = doc.Clone()
	if v, ok := doc[record.PrimaryKey]; !ok || v == nil {
		doc[record.PrimaryKey] = uuid.New().String()
	}
	id, err := doc.ID()
	if err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, collection, doc); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}

	s.logger.Debug("record created", "collection", collection, "id", id)
	return s.store.Get(ctx, collection, id)
}

// Update merges patch into the stored document. Top-level fields in patch
// replace the stored ones; the _id is immutable and ignored in patch.
// Returns record.ErrNotFound if the document does not exist.
func (s *RecordService) Update(ctx context.Context, collection, id string, patch record.Document) (record.Document, error) {
	if err := record.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	for k, v := range patch.Clone() {
		if k == record.PrimaryKey {
			continue
		}
		existing[k] = v
	}

	if err := s.store.Replace(ctx, collection, id, existing); err != nil {
		return nil, fmt.Errorf("replace in %s: %w", collection, err)
	}

	s.logger.Debug("record updated", "collection", collection, "id", id, "fields", len(patch))
	return s.store.Get(ctx, collection, id)
}

// Delete removes a document and returns it as it was before removal.
// Returns record.ErrNotFound if the document does not exist.
func (s *RecordService) Delete(ctx context.Context, collection, id string) (record.Document, error) {
	if err := record.ValidateCollection(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return nil, err
	}

	s.logger.Debug("record deleted", "collection", collection, "id", id)
	return existing, nil
}

// Seed inserts fixture documents. Collections are processed in name order
// and documents keep their order within a collection. Documents whose _id
// already exists are skipped. Returns the number of documents inserted.
func (s *RecordService) Seed(ctx context.Context, data map[string][]record.Document) (int, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	inserted := 0
	for _, name := range names {
		for i, doc := range data[name] {
			_, err := s.Create(ctx, name, doc)
			if errors.Is(err, record.ErrDuplicateID) {
				continue
			}
			if err != nil {
				return inserted, fmt.Errorf("seed %s[%d]: %w", name, i, err)
			}
			inserted++
		}
	}

	s.logger.Info("seed data loaded", "collections", len(names), "documents", inserted)
	return inserted, nil
}
