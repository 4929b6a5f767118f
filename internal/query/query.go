// Package query coordinates backend reads for the dashboard views.
//
// Cache collapses concurrent identical fetches and keeps results for a
// short time. A shared fetch is cancelled once every caller waiting on it
// has given up. Generations lets a view abandon a fetch that a newer fetch
// for the same view has superseded.
package query

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrStale is returned for results superseded by a newer fetch.
var ErrStale = errors.New("stale result")

type entry struct {
	value   any
	expires time.Time
}

// flight is one shared fetch and the callers still waiting on it.
type flight struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	flights map[string]*flight
	epoch   uint64
	seq     uint64
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
		flights: make(map[string]*flight),
	}
}

// Get returns the cached value for key or runs fetch once for all callers
// waiting on the same key. Errors are not cached. The context passed to
// fetch is cancelled when the last waiting caller's ctx is done.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value.(T), nil
	}
	epoch := c.epoch
	// Callers arriving after an invalidation must not join an older flight.
	fkey := key + "#" + strconv.FormatUint(epoch, 10)
	f := c.flights[fkey]
	if f == nil {
		c.seq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{name: fkey + "#" + strconv.FormatUint(c.seq, 10), ctx: fctx, cancel: cancel}
		c.flights[fkey] = f
	}
	f.waiters++
	c.mu.Unlock()
	defer c.leave(fkey, f)

	ch := c.group.DoChan(f.name, func() (any, error) {
		v, err := fetch(f.ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// An invalidation during the fetch makes the value unsafe to keep.
		if c.epoch == epoch {
			c.entries[key] = entry{value: v, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// leave drops one waiter from f and cancels the fetch when none are left.
func (c *Cache) leave(fkey string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[fkey] == f {
		delete(c.flights, fkey)
	}
}

// Invalidate drops every key starting with one of prefixes. In-flight
// fetches started before the call will not populate the cache.
func (c *Cache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for key := range c.entries {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				delete(c.entries, key)
				break
			}
		}
	}
}

// Len reports the number of cached keys, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Ticket identifies one fetch for a view.
type Ticket struct {
	Key string
	Gen uint64
}

type Generations struct {
	mu      sync.Mutex
	current map[string]uint64
	cancel  map[string]context.CancelFunc
}

func NewGenerations() *Generations {
	return &Generations{
		current: make(map[string]uint64),
		cancel:  make(map[string]context.CancelFunc),
	}
}

// Begin starts a fetch for key, cancelling the previous fetch for the same
// key. The returned context is cancelled when a newer fetch begins; a Get
// running under it stops its upstream request unless another caller still
// waits on the same flight.
func (g *Generations) Begin(ctx context.Context, key string) (context.Context, Ticket, context.CancelFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cancel := g.cancel[key]; cancel != nil {
		cancel()
	}
	g.current[key]++
	fctx, cancel := context.WithCancel(ctx)
	g.cancel[key] = cancel
	t := Ticket{Key: key, Gen: g.current[key]}
	return fctx, t, func() { g.finish(t, cancel) }
}

func (g *Generations) finish(t Ticket, cancel context.CancelFunc) {
	cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current[t.Key] == t.Gen {
		delete(g.cancel, t.Key)
	}
}

// Current reports whether t is still the latest fetch for its key.
func (g *Generations) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[t.Key] == t.Gen
}

// Check returns ErrStale when t has been superseded.
func (g *Generations) Check(t Ticket) error {
	if !g.Current(t) {
		return ErrStale
	}
	return nil
}
