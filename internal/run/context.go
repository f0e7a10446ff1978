// Package run tracks the session being recorded so loggers and monitors can
// read it without reaching into the driver.
package run

import (
	"sync"
	"sync/atomic"

	"github.com/intersim/intersim/pkg/core"
)

// Context holds the current run and the last completed tick
type Context struct {
	mu   sync.RWMutex
	run  *core.Run
	tick atomic.Uint64
}

// NewContext creates a Context with no run loaded
func NewContext() *Context {
	return &Context{}
}

// Run returns the current run, or nil
func (c *Context) Run() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// RunID returns the current run ID, empty outside a run
func (c *Context) RunID() string {
	if r := c.Run(); r != nil {
		return r.ID.String()
	}
	return ""
}

// SetRun replaces the current run and resets the clock
func (c *Context) SetRun(r *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = r
	c.tick.Store(0)
}

func (c *Context) Tick() uint64 {
	return c.tick.Load()
}

func (c *Context) SetTick(t uint64) {
	c.tick.Store(t)
}
