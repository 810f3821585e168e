// Package event carries typed lifecycle events through a messaging queue to a
// background listener.
package event

import "time"

// Context identifies where an event came from.
type Context struct {
	BootID    string `json:"bootId" yaml:"bootId"`
	EventType string `json:"eventType" yaml:"eventType"`
	Service   string `json:"service" yaml:"service"`
	Policy    string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// Event wraps a payload with its origin and publication time.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event for data.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context: context,
		Data:    data,
	}
}
