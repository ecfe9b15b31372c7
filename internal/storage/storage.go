// Package storage defines the generic record store contract. Collections
// are named sets of JSON rows reached over the hosted database's REST
// interface; filters are exact-match column predicates.
package storage

import "context"

// Filter maps column names to required values (equality match)
type Filter map[string]string

// Query carries optional result shaping for Select
type Query struct {
	Order string // e.g. "created_at.asc"
	Limit int    // 0 means no limit
}

// Option adjusts a Select query
type Option func(*Query)

// WithOrder sorts results by the given column expression
func WithOrder(expr string) Option {
	return func(q *Query) { q.Order = expr }
}

// WithLimit caps the number of returned rows
func WithLimit(n int) Option {
	return func(q *Query) { q.Limit = n }
}

// Store is the generic create/read/update/delete surface over named
// collections. Update reports the number of affected rows so callers can
// implement conditional (compare-and-swap) writes.
type Store interface {
	Select(ctx context.Context, collection string, filter Filter, dest interface{}, opts ...Option) error
	Insert(ctx context.Context, collection string, record interface{}, created interface{}) error
	Update(ctx context.Context, collection string, filter Filter, fields interface{}) (int, error)
	Delete(ctx context.Context, collection string, filter Filter) error
}
