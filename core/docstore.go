package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrDocNotFound is returned by Docstore implementations when no document
// exists under the requested collection and key.
var ErrDocNotFound = errors.New("document not found")

// Filter ops understood by all Docstore implementations.
const (
	OpEqual         = "=="
	OpGreaterEqual  = ">="
	OpLessEqual     = "<="
	OpArrayContains = "array-contains"
)

type (
	// Filter restricts a query to documents whose serialized field matches
	// Value under Op.
	Filter struct {
		Field string
		Op    string
		Value interface{}
	}

	// Ordering sorts query results by a serialized field name.
	Ordering struct {
		Field string
		Desc  bool
	}

	// Query combines filters (ANDed), orderings and an optional limit.
	Query struct {
		Filters []Filter
		OrderBy []Ordering
		Limit   int
	}

	// Docstore is the narrow port onto the managed document database.
	// Documents are identified by a collection name and a string key.
	Docstore interface {
		// Get decodes the document into dest (a struct pointer).
		Get(ctx context.Context, col, key string, dest interface{}) error
		// GetAll decodes all matching documents into dest (a pointer to a
		// slice of structs).
		GetAll(ctx context.Context, col string, dest interface{}, q Query) error
		Exists(ctx context.Context, col, key string) (bool, error)
		// Set writes the full document under key, overwriting any previous
		// content (idempotent overwrite semantics).
		Set(ctx context.Context, col, key string, doc interface{}) error
		// Merge writes only the given serialized fields, creating the
		// document if absent.
		Merge(ctx context.Context, col, key string, fields map[string]interface{}) error
		Delete(ctx context.Context, col, key string) error
		// Batch starts an atomic multi-document write: all queued writes are
		// applied together or not at all.
		Batch() DocstoreBatch
	}

	DocstoreBatch interface {
		Set(col, key string, doc interface{}) DocstoreBatch
		Merge(col, key string, fields map[string]interface{}) DocstoreBatch
		Delete(col, key string) DocstoreBatch
		Commit(ctx context.Context) error
	}
)

// Where is a shorthand for a single-filter query.
func Where(field, op string, value interface{}) Query {
	return Query{Filters: []Filter{{Field: field, Op: op, Value: value}}}
}
