// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
)

// collection keeps documents with their insertion order.
type collection struct {
	order []string
	docs  map[string]record.Document
}

// MemoryRecordStore implements record.Store with in-memory maps.
// Thread-safe for concurrent access via sync.RWMutex.
// Returns deep copies to prevent external mutation of stored data.
type MemoryRecordStore struct {
	collections map[string]*collection
	mu          sync.RWMutex
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		collections: make(map[string]*collection),
	}
}

// Find returns the documents of a collection selected by q as deep copies.
func (s *MemoryRecordStore) Find(ctx context.Context, name string, q record.Query) ([]record.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return []record.Document{}, nil
	}
	all := make([]record.Document, 0, len(c.order))
	for _, id := range c.order {
		all = append(all, c.docs[id])
	}

	page := record.Apply(all, q)
	result := make([]record.Document, len(page))
	for i, d := range page {
		result[i] = d.Clone()
	}
	return result, nil
}

// Get returns a single document by ID as a deep copy.
// Returns record.ErrNotFound if the document does not exist.
func (s *MemoryRecordStore) Get(ctx context.Context, name, id string) (record.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, record.ErrNotFound
	}
	d, ok := c.docs[id]
	if !ok {
		return nil, record.ErrNotFound
	}
	return d.Clone(), nil
}

// Insert stores a deep copy of doc under its _id.
func (s *MemoryRecordStore) Insert(ctx context.Context, name string, doc record.Document) error {
	id, err := doc.ID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]record.Document)}
		s.collections[name] = c
	}
	if _, exists := c.docs[id]; exists {
		return record.ErrDuplicateID
	}
	c.order = append(c.order, id)
	c.docs[id] = doc.Clone()
	return nil
}

// Replace overwrites an existing document, keeping its position.
// Returns record.ErrNotFound if the document does not exist.
func (s *MemoryRecordStore) Replace(ctx context.Context, name, id string, doc record.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return record.ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return record.ErrNotFound
	}
	c.docs[id] = doc.Clone()
	return nil
}

// Delete removes a document by ID.
// Returns record.ErrNotFound if the document does not exist.
func (s *MemoryRecordStore) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return record.ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return record.ErrNotFound
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
	return nil
}

// Compile-time interface verification.
var _ record.Store = (*MemoryRecordStore)(nil)
