// Package cleanup collects release actions and runs them exactly once.
package cleanup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opencode-ai/hostbridge/internal/logging"
)

// Collector accumulates release actions such as unsubscribe functions.
// The zero value is ready to use.
type Collector struct {
	mu       sync.Mutex
	releases []func() error
	done     bool
	once     sync.Once
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{}
}

// Add registers a release action.
func (c *Collector) Add(fn func()) {
	c.AddErr(func() error {
		fn()
		return nil
	})
}

// AddErr registers a release action that may fail.
// Adding to a collector that has already run executes fn immediately so that
// late resources are not leaked.
func (c *Collector) AddErr(fn func() error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		if err := safeRun(fn); err != nil {
			logging.Warn().Err(err).Msg("late cleanup failed")
		}
		return
	}
	c.releases = append(c.releases, fn)
	c.mu.Unlock()
}

// Run executes every registered release in the order added. Only the first
// call does any work; a concurrent call waits for it to finish, and later
// calls return nil. A failing or panicking release does not prevent the
// remaining ones from running: failures are joined into the returned error.
func (c *Collector) Run() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.done = true
		releases := c.releases
		c.releases = nil
		c.mu.Unlock()

		var errs []error
		for i, fn := range releases {
			if rerr := safeRun(fn); rerr != nil {
				logging.Warn().Err(rerr).Int("index", i).Msg("cleanup release failed")
				errs = append(errs, rerr)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// Done reports whether Run has been called.
func (c *Collector) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func safeRun(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release panicked: %v", r)
		}
	}()
	return fn()
}
