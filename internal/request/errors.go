package request

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEvents is returned when a request tracks no events and so could
	// never resolve.
	ErrNoEvents = errors.New("at least one tracked event is required")
	// ErrNoMethod is returned when the command name is empty.
	ErrNoMethod = errors.New("method name is required")
	// ErrNoSender is returned when neither the engine nor the call has a sender.
	ErrNoSender = errors.New("no sender configured")
	// ErrUnbounded is returned when a custom capture predicate is used without
	// any timeout or cancellable context: a predicate that never matches would
	// leave the request waiting forever.
	ErrUnbounded = errors.New("a custom capture predicate requires a timeout or a cancellable context")
)

// SendError is returned when the command could not be sent to the host.
type SendError struct {
	Method string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send %s: %v", e.Method, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsSendError checks if an error is a send failure.
func IsSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se)
}
