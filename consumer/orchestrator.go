package consumer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/magnusoverli/ember-plus-sub000/model"
)

// maxParallelFetch bounds the number of in-flight GetDirectory requests a
// complete-tree walk keeps outstanding at once ("tree-fetch
// orchestrator").
const maxParallelFetch = 5

// FetchProgress reports how much of a tree-fetch has completed; Total grows
// as previously unseen children are discovered, so (Completed, Total) only
// converges once the walk finishes.
type FetchProgress struct {
	Completed int
	Total     int
}

// expandAndWait sends (or reuses) an Expand for path and blocks until its
// GetDirectory response has been ingested, then returns the children now
// recorded in the store. It is called from the orchestrator goroutine, never
// from the engine goroutine, so the one cmds send below cannot deadlock.
// Registration is itself a prefetch-class command: under sustained queue
// pressure it can be dropped like any other Expand, in which case the walk
// fails fast instead of hanging on a done channel nothing will ever close.
func (c *Conn) expandAndWait(ctx context.Context, path model.Path) ([]model.Path, error) {
	if kind, known := c.store.Kind(path); known && kind != model.KindNode {
		return nil, nil
	}

	done := make(chan struct{})
	key := path.String()
	if !c.enqueueDroppable(func(c *Conn) {
		c.expandWaiters[key] = append(c.expandWaiters[key], done)
		c.expandLocked(path)
	}) {
		return nil, errors.Errorf("consumer: host command queue full, dropped expand of %s", key)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stop:
		return nil, context.Canceled
	}
	return c.store.Children(path), nil
}

// FetchCompleteTree walks every path reachable from roots, expanding Node
// elements with up to cfg.TreeFetchMaxPar (maxParallelFetch when unset)
// concurrent requests in flight.
// progress receives a report after every expansion and is closed when the
// walk ends, successfully or not; cancelling ctx (or a later CancelFetch)
// stops it early without treating the partial tree as an error.
func (c *Conn) FetchCompleteTree(ctx context.Context, roots []model.Path, progress chan<- FetchProgress) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	c.enqueueCritical(func(c *Conn) {
		c.fetchCancel = cancel
		close(done)
	})
	select {
	case <-done:
	case <-c.stop:
		return context.Canceled
	}
	defer close(progress)

	g, gctx := errgroup.WithContext(ctx)
	limit := c.cfg.TreeFetchMaxPar
	if limit <= 0 {
		limit = maxParallelFetch
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	completed, total := 0, len(roots)
	report := func() {
		mu.Lock()
		p := FetchProgress{Completed: completed, Total: total}
		mu.Unlock()
		select {
		case progress <- p:
		case <-gctx.Done():
		}
	}

	var walk func(p model.Path) error
	walk = func(p model.Path) error {
		children, err := c.expandAndWait(gctx, p)
		mu.Lock()
		completed++
		total += len(children)
		mu.Unlock()
		report()
		if err != nil {
			return err
		}
		for _, child := range children {
			child := child
			kind, known := c.store.Kind(child)
			if known && kind != model.KindNode {
				mu.Lock()
				completed++
				mu.Unlock()
				report()
				continue
			}
			if !g.TryGo(func() error { return walk(child) }) {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, r := range roots {
		r := r
		g.Go(func() error { return walk(r) })
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil // cancelled, not a failure
		}
		return err
	}
	return nil
}

// CancelFetch stops an in-flight FetchCompleteTree early, if one is running.
func (c *Conn) CancelFetch() {
	c.enqueueCritical(func(c *Conn) {
		if c.fetchCancel != nil {
			c.fetchCancel()
		}
	})
}
