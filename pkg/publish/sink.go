package publish

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned for keys that are empty or escape the sink.
var ErrInvalidKey = errors.New("publish: invalid key")

// ErrTooLarge is returned when a body exceeds the sink's size limit.
var ErrTooLarge = errors.New("publish: body too large")

// Sink stores published bodies under string keys.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Publish stores body under key, replacing any previous body.
	Publish(ctx context.Context, key string, body []byte, contentType string) error
}
