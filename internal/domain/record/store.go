package record

import (
	"context"
	"errors"
)

// Sentinel errors for record store operations.
var (
	// ErrNotFound is returned when no document has the given ID.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when inserting a document whose ID exists.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrMissingID is returned when a document has no usable _id.
	ErrMissingID = errors.New("record id is missing")
	// ErrInvalidQuery is returned for malformed filters, sort fields or bounds.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidDocument is returned when a body is not a JSON object.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidCollection is returned for empty or nested collection names.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// Store persists documents grouped by collection.
// This is a port (interface) in the hexagonal architecture.
// Implementations: in-memory (memory package), SQLite (sqlite package).
type Store interface {
	// Find returns the documents of collection selected by q, in order.
	// An unknown collection yields an empty result.
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	// Get returns one document by ID.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Insert stores a new document keyed by its _id.
	// Returns ErrDuplicateID if the ID is taken.
	Insert(ctx context.Context, collection string, doc Document) error
	// Replace overwrites an existing document.
	// Returns ErrNotFound if the document does not exist.
	Replace(ctx context.Context, collection, id string, doc Document) error
	// Delete removes a document by ID.
	// Returns ErrNotFound if the document does not exist.
	Delete(ctx context.Context, collection, id string) error
}
