// Package dao defines the storage abstraction used for process accounting
// records and the shared errors and query parameters of its implementations.
package dao

import (
	"context"
)

// Service stores entities of type T keyed by K.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	// List returns entities matching all parameters; parameters naming an
	// unknown field are ignored.
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
