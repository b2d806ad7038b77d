// Package derived computes and caches overlay series (indicators, model
// predictions) from a data window and a parameter snapshot.
package derived

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/raykavin/chartsync/pkg/window"
	"github.com/samber/lo"
)

const DefaultCacheSize = 64

// ParamSource hands out immutable parameter snapshots; *params.Store
// satisfies it.
type ParamSource interface {
	Snapshot(names ...string) params.Snapshot
}

// Outcome is the result of one transform in a ComputeAll batch.
type Outcome struct {
	Series Series
	Err    error
}

// Stats counts cache activity since the engine was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Discarded uint64 // results computed for a window no longer shown
	Evictions uint64
	Failures  uint64
}

type Option func(*Engine)

// WithCacheSize bounds the number of cached results kept per transform.
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.cacheSize = size
		}
	}
}

// WithWorkers bounds the parallelism of ComputeAll.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = logger.OrNop(log)
	}
}

// Engine is a registry of transforms with a per-transform result cache.
//
// The engine follows the view: a computation started for version v still
// returns its result, but the result is only installed in the cache if v is
// still current or the current view shows the same window. Versions that
// only move the hover or switch the chart type leave cached windows valid.
type Engine struct {
	mu         sync.Mutex
	transforms map[string]Transform
	caches     map[string]*lru.Cache[string, Series]
	stats      Stats
	current    mark

	cacheSize int
	workers   int
	log       logger.Logger
}

// mark is the view the engine follows. window is empty when unknown.
type mark struct {
	version uint64
	window  string
}

func NewEngine(options ...Option) *Engine {
	e := &Engine{
		transforms: make(map[string]Transform),
		caches:     make(map[string]*lru.Cache[string, Series]),
		cacheSize:  DefaultCacheSize,
		workers:    runtime.NumCPU(),
		log:        logger.Nop(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Register adds t to the registry. Ids must be unique.
func (e *Engine) Register(t Transform) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := t.ID()
	if _, ok := e.transforms[id]; ok {
		return fmt.Errorf("transform %s already registered", id)
	}
	cache, err := lru.New[string, Series](e.cacheSize)
	if err != nil {
		return fmt.Errorf("transform %s: %w", id, err)
	}
	e.transforms[id] = t
	e.caches[id] = cache
	return nil
}

// Transforms returns the registered ids in sorted order.
func (e *Engine) Transforms() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := lo.Keys(e.transforms)
	sort.Strings(ids)
	return ids
}

// Advance moves the engine to version, whose view shows w. A zero w makes
// every older result stale. Older versions are ignored.
func (e *Engine) Advance(version uint64, w window.Window) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if version <= e.current.version {
		return
	}
	e.current = mark{version: version}
	if !w.IsZero() {
		e.current.window = w.Key()
	}
}

func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.version
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Cached reports how many results are cached for the transform id.
func (e *Engine) Cached(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.caches[id]; ok {
		return c.Len()
	}
	return 0
}

// Compute returns the derived series of transform id over w, using the
// parameters of store relevant to the transform. A cached result is
// returned without invoking the transform. ctx only bounds the wait: a
// cancelled computation keeps running and may still be installed.
func (e *Engine) Compute(ctx context.Context, id string, w window.Window, store ParamSource) (Series, error) {
	return e.compute(ctx, e.Version(), id, w, store)
}

// ComputeAll runs the given transforms in parallel for version. A failed
// transform only affects its own outcome.
func (e *Engine) ComputeAll(ctx context.Context, version uint64, ids []string, w window.Window, store ParamSource) map[string]Outcome {
	var (
		outcomes  = make(map[string]Outcome, len(ids))
		mutex     sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, e.workers)
	)

	for _, id := range lo.Uniq(ids) {
		select {
		case <-ctx.Done():
			mutex.Lock()
			outcomes[id] = Outcome{Err: ctx.Err()}
			mutex.Unlock()
			continue
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			series, err := e.compute(ctx, version, id, w, store)

			mutex.Lock()
			outcomes[id] = Outcome{Series: series, Err: err}
			mutex.Unlock()
		}(id)
	}

	wg.Wait()
	return outcomes
}

func (e *Engine) compute(ctx context.Context, version uint64, id string, w window.Window, store ParamSource) (Series, error) {
	e.mu.Lock()
	t, ok := e.transforms[id]
	e.mu.Unlock()
	if !ok {
		return Series{}, fmt.Errorf("%s: %w", id, core.ErrUnknownTransform)
	}

	visible := w.Key()
	if t.FullHistory() {
		w = window.Full(w.Series())
	}
	snapshot := store.Snapshot(t.RelevantParams()...)
	key := w.Key() + "#" + snapshot.Key()

	e.mu.Lock()
	if cached, hit := e.caches[id].Get(key); hit {
		e.stats.Hits++
		e.mu.Unlock()
		e.log.Tracef("derived %s: cache hit %s", id, key)
		return cached, nil
	}
	e.stats.Misses++
	e.mu.Unlock()

	type result struct {
		series Series
		err    error
	}
	done := make(chan result, 1)

	go func() {
		series, err := e.invoke(t, w, snapshot)
		if err == nil {
			e.install(id, key, version, visible, series)
		}
		done <- result{series, err}
	}()

	select {
	case <-ctx.Done():
		return Series{}, ctx.Err()
	case r := <-done:
		return r.series, r.err
	}
}

// invoke runs the transform and converts failures, panics included, into a
// *core.TransformError.
func (e *Engine) invoke(t Transform, w window.Window, snapshot params.Snapshot) (series Series, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &core.TransformError{TransformID: t.ID(), Range: w.Range(), Err: err}
			e.mu.Lock()
			e.stats.Failures++
			e.mu.Unlock()
			e.log.WithError(err).Errorf("derived %s failed", t.ID())
		}
	}()

	warmup := t.Warmup(snapshot)
	series, err = t.Compute(newInput(w, snapshot, warmup))
	if err != nil {
		return Series{}, err
	}

	series.TransformID = t.ID()
	series.Range = w.Range()
	series.Warmup = warmup
	return series, nil
}

// install caches series unless the view moved to another window since
// version.
func (e *Engine) install(id, key string, version uint64, visible string, series Series) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.current
	if current.version != version && (current.window == "" || current.window != visible) {
		e.stats.Discarded++
		e.log.Debugf("derived %s: discarding result for version %d, current is %d", id, version, current.version)
		return
	}

	if e.caches[id].Add(key, series) {
		e.stats.Evictions++
	}
	e.log.Debugf("derived %s: installed %s", id, key)
}
