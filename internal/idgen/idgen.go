package idgen

import "github.com/google/uuid"

// NewFunc returns a new identifier; tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// Valid reports whether id has the shape produced by the default generator.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
