package keyed

import "github.com/google/uuid"

// Surface is the external structure a List mirrors. Each call carries the
// stable identity marker of the node it touches. The list records the
// entry only after the surface call returns.
type Surface[N any] interface {
	AppendChild(id string, node N) error
	InsertBefore(id string, node N, refID string) error
	RemoveChild(id string) error
	ReplaceChild(id string, node N, oldID string) error
}

// Renderer turns an item into a surface node.
type Renderer[T, N any] func(item T) (N, error)

// Identity is a Renderer for lists whose items are their own nodes.
func Identity[T any](item T) (T, error) {
	return item, nil
}

// NewID returns a random identity for an item that has none yet.
func NewID() string {
	return uuid.NewString()
}
