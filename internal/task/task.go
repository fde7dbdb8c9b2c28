// Package task provides a settle-once asynchronous unit of work with external
// cancellation, an optional timeout and a finalized hook.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a Task.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures a Task.
type Options struct {
	// Timeout cancels the task with a *TimeoutError once elapsed. Zero disables it.
	Timeout time.Duration
}

// AbortedError is the settlement error of a task cancelled from outside.
type AbortedError struct {
	Reason error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("task aborted: %v", e.Reason)
}

func (e *AbortedError) Unwrap() error {
	return e.Reason
}

// TimeoutError is the settlement error of a task whose timeout elapsed.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task timed out after %s", e.After)
}

// IsAborted checks if an error is an external cancellation.
func IsAborted(err error) bool {
	var ae *AbortedError
	return errors.As(err, &ae)
}

// IsTimeout checks if an error is a timeout, either the task's own or a
// context deadline that aborted it.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ae *AbortedError
	return errors.As(err, &ae) && errors.Is(ae.Reason, context.DeadlineExceeded)
}

// Task is a future that settles exactly once.
type Task[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
	hooks []func()

	stopCtx func() bool
	timer   *time.Timer
}

// New creates a pending task bound to ctx: cancelling ctx aborts the task with
// context.Cause(ctx) as the reason.
func New[T any](ctx context.Context, opts Options) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}

	if ctx.Err() != nil {
		t.Abort(context.Cause(ctx))
		return t
	}

	t.mu.Lock()
	t.stopCtx = context.AfterFunc(ctx, func() {
		t.Abort(context.Cause(ctx))
	})
	if opts.Timeout > 0 {
		after := opts.Timeout
		t.timer = time.AfterFunc(after, func() {
			t.settle(Cancelled, *new(T), &TimeoutError{After: after})
		})
	}
	t.mu.Unlock()

	return t
}

// Run creates a task and calls executor synchronously with it. A panic in the
// executor rejects the task.
func Run[T any](ctx context.Context, opts Options, executor func(t *Task[T])) *Task[T] {
	t := New[T](ctx, opts)
	if t.State() != Pending {
		return t
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Reject(fmt.Errorf("task executor panicked: %v", r))
			}
		}()
		executor(t)
	}()
	return t
}

// Resolve fulfills the task with v. It reports whether this call settled it.
func (t *Task[T]) Resolve(v T) bool {
	return t.settle(Fulfilled, v, nil)
}

// Reject settles the task with err.
func (t *Task[T]) Reject(err error) bool {
	return t.settle(Rejected, *new(T), err)
}

// Abort cancels the task with reason. A nil reason becomes context.Canceled.
func (t *Task[T]) Abort(reason error) bool {
	if reason == nil {
		reason = context.Canceled
	}
	return t.settle(Cancelled, *new(T), &AbortedError{Reason: reason})
}

func (t *Task[T]) settle(state State, v T, err error) bool {
	t.mu.Lock()
	if t.state != Pending {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.value = v
	t.err = err
	hooks := t.hooks
	t.hooks = nil
	stopCtx, timer := t.stopCtx, t.timer
	t.mu.Unlock()

	if stopCtx != nil {
		stopCtx()
	}
	if timer != nil {
		timer.Stop()
	}
	// Hooks run before waiters are released so that a settled result is
	// never observed ahead of its finalization.
	for _, fn := range hooks {
		fn()
	}
	close(t.done)
	return true
}

// OnFinalized registers fn to run once the task settles for any reason.
// If the task has already settled, fn runs immediately in the caller's
// goroutine. Otherwise it runs in the goroutine that settles the task, before
// Wait returns. fn must not call Wait.
func (t *Task[T]) OnFinalized(fn func()) {
	t.mu.Lock()
	if t.state == Pending {
		t.hooks = append(t.hooks, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// Done returns a channel closed when the task settles.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// State returns the current state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until the task settles and returns its value or error.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}
