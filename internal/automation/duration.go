package automation

import (
	"context"
	"sync"
)

// DurationFunc reports the duration in seconds of the audio file at path.
type DurationFunc func(ctx context.Context, path string) (float64, error)

// DurationCache memoizes one duration query for one dispatch. A new cache is
// created per dispatch; it is never shared between dispatches.
type DurationCache struct {
	query DurationFunc
	path  string

	mu    sync.Mutex
	done  bool
	value float64
	err   error
}

// NewDurationCache binds query to the dispatch's first input path.
func NewDurationCache(query DurationFunc, path string) *DurationCache {
	return &DurationCache{query: query, path: path}
}

// Duration runs the query on first use and returns the cached result after.
// A failed query is cached too, so the dispatch fails consistently.
func (c *DurationCache) Duration(ctx context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		c.value, c.err = c.query(ctx, c.path)
		c.done = true
	}
	return c.value, c.err
}

// Path returns the file whose duration is cached.
func (c *DurationCache) Path() string {
	return c.path
}
