package queue

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrPermanent marks job errors that a retry cannot fix.
var ErrPermanent = errors.New("queue: permanent failure")

// Job defines a queue job handler.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes the job with the JSON payload it was enqueued with.
	Handle(ctx context.Context, payload json.RawMessage) error
}
