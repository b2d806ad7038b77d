// Package syncbus keeps the view state of all chart panels consistent. Panels
// send interaction events to the bus; a single goroutine validates and
// applies them in order and broadcasts every new snapshot to all panels but
// the one that caused it.
package syncbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/StudioSol/set"
	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/raykavin/chartsync/pkg/window"
	"github.com/samber/lo"
)

const DefaultQueueSize = 256

// Hook observes every applied change. Hooks run on the bus goroutine before
// the snapshot is broadcast and must not call Dispatch.
type Hook func(prev, next view.State)

type request struct {
	event view.Event
	reply chan reply
}

type reply struct {
	state view.State
	err   error
}

type Option func(*Bus)

func WithLogger(log logger.Logger) Option {
	return func(b *Bus) {
		b.log = logger.OrNop(log)
	}
}

func WithQueueSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}

// WithInitialRange sets the visible range at version 0. It is clamped to
// the series span; a range outside the span falls back to the full series.
func WithInitialRange(r core.TimeRange) Option {
	return func(b *Bus) {
		b.initialRange = r
	}
}

func WithChartType(chartType view.ChartType) Option {
	return func(b *Bus) {
		b.chartType = chartType
	}
}

// Bus serializes view events for one series.
type Bus struct {
	series *core.Series
	log    logger.Logger

	queueSize    int
	initialRange core.TimeRange
	chartType    view.ChartType

	events chan request

	mu          sync.RWMutex
	current     view.State
	subscribers map[string]*Subscription
	order       *set.LinkedHashSetString
	hooks       []Hook
	stopped     bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func New(series *core.Series, options ...Option) (*Bus, error) {
	b := &Bus{
		series:      series,
		log:         logger.Nop(),
		queueSize:   DefaultQueueSize,
		chartType:   view.Line,
		subscribers: make(map[string]*Subscription),
		order:       set.NewLinkedHashSetString(),
		done:        make(chan struct{}),
	}
	for _, option := range options {
		option(b)
	}

	if !b.chartType.Valid() {
		return nil, fmt.Errorf("%q: %w", b.chartType, core.ErrInvalidChartType)
	}

	w := window.Full(series)
	if !b.initialRange.Empty() {
		if narrowed, err := w.Narrow(b.initialRange); err == nil {
			w = narrowed
		} else {
			b.log.WithError(err).Warn("initial range ignored")
		}
	}

	b.current = view.State{Range: w.Range(), ChartType: b.chartType}
	b.events = make(chan request, b.queueSize)
	return b, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		b.wg.Add(1)
		go b.loop(ctx)
	})
}

// Stop ends the event loop and closes every subscription. Pending events
// are dropped.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	b.closeAll()
}

// Current returns the latest applied snapshot.
func (b *Bus) Current() view.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// OnApply registers a hook called for every applied change, in
// registration order.
func (b *Bus) OnApply(hook Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, hook)
}

// Subscribe registers a panel. The subscription starts with the current
// snapshot pending. Subscribing an id again replaces the old subscription.
func (b *Bus) Subscribe(id string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscription(id, b.current)
	if b.stopped {
		sub.close()
		return sub
	}
	if old, ok := b.subscribers[id]; ok {
		old.close()
	} else {
		b.order.Add(id)
	}
	b.subscribers[id] = sub
	return sub
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		sub.close()
		delete(b.subscribers, id)
		b.order.Remove(id)
	}
}

// Dispatch applies ev and waits for the result. A rejected event returns
// its error and leaves the state unchanged; a no-op returns the current
// snapshot.
func (b *Bus) Dispatch(ctx context.Context, ev view.Event) (view.State, error) {
	req := request{event: ev, reply: make(chan reply, 1)}
	if err := b.enqueue(ctx, req); err != nil {
		return view.State{}, err
	}

	select {
	case r := <-req.reply:
		return r.state, r.err
	case <-ctx.Done():
		return view.State{}, ctx.Err()
	case <-b.done:
		return view.State{}, core.ErrBusStopped
	}
}

// Publish queues ev without waiting. Rejections are delivered to the
// origin's subscription only.
func (b *Bus) Publish(ev view.Event) error {
	return b.enqueue(context.Background(), request{event: ev})
}

func (b *Bus) enqueue(ctx context.Context, req request) error {
	if req.event == nil {
		return errors.New("nil view event")
	}

	select {
	case <-b.done:
		return core.ErrBusStopped
	default:
	}

	select {
	case b.events <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return core.ErrBusStopped
	}
}

func (b *Bus) loop(ctx context.Context) {
	defer b.wg.Done()
	defer b.closeAll()

	for {
		select {
		case <-ctx.Done():
			b.stopOnce.Do(func() { close(b.done) })
			return
		case <-b.done:
			return
		case req := <-b.events:
			state, err := b.handle(req.event)
			if req.reply != nil {
				req.reply <- reply{state: state, err: err}
			} else if err != nil {
				b.reject(req.event.Origin(), err)
			}
		}
	}
}

func (b *Bus) handle(ev view.Event) (view.State, error) {
	prev := b.Current()

	next, err := b.apply(prev, ev)
	if err != nil {
		b.log.WithError(err).
			WithField("origin", ev.Origin()).
			WithField("kind", ev.Kind().String()).
			Warn("view event rejected")
		return prev, err
	}

	if next.SameView(prev) {
		b.log.Tracef("view event %s from %s is a no-op", ev.Kind(), ev.Origin())
		return prev, nil
	}

	next.Version = prev.Version + 1
	next.Origin = ev.Origin()

	b.mu.Lock()
	b.current = next
	hooks := append([]Hook(nil), b.hooks...)
	b.mu.Unlock()

	for _, hook := range hooks {
		b.runHook(hook, prev, next)
	}

	b.broadcast(next)
	b.log.Debugf("view version %d applied (%s from %s)", next.Version, ev.Kind(), ev.Origin())
	return next, nil
}

func (b *Bus) runHook(hook Hook, prev, next view.State) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("view hook panicked at version %d: %v", next.Version, r)
		}
	}()
	hook(prev, next)
}

// broadcast offers next to every subscriber except its origin, which only
// receives it when other changes are still waiting in its mailbox.
func (b *Bus) broadcast(next view.State) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id := range b.order.Iter() {
		sub, ok := b.subscribers[id]
		if !ok {
			continue
		}
		if id == next.Origin {
			sub.ack(next)
			continue
		}
		sub.offer(next)
	}
}

func (b *Bus) reject(origin string, err error) {
	b.mu.RLock()
	sub, ok := b.subscribers[origin]
	b.mu.RUnlock()

	if ok && !sub.reject(err) {
		b.log.Warnf("rejection buffer of %s is full, dropping: %v", origin, err)
	}
}

func (b *Bus) apply(prev view.State, ev view.Event) (view.State, error) {
	next := prev

	visible, err := window.Slice(b.series, prev.Range)
	if err != nil {
		return prev, err
	}

	switch e := ev.(type) {
	case view.RangeChanged:
		w, err := window.Slice(b.series, e.Range)
		if err != nil {
			return prev, err
		}
		next.Range = w.Range()
		next.Selection = reclamp(prev.Selection, w)
		if next.Hover != nil && !w.Contains(next.Hover.Time) {
			next.Hover = nil
		}

	case view.SelectionChanged:
		if len(e.Points) > 2 {
			return prev, core.ErrTooManyPoints
		}
		selection, err := view.NewSelection(clampPoints(e.Points, visible)...)
		if err != nil {
			return prev, err
		}
		next.Selection = selection

	case view.HoverChanged:
		if e.Point == nil {
			next.Hover = nil
			break
		}
		p := core.Point{Time: visible.Clamp(e.Point.Time), Price: e.Point.Price}
		next.Hover = &p

	case view.ChartTypeChanged:
		if !e.Mode.Valid() {
			return prev, fmt.Errorf("%q: %w", e.Mode, core.ErrInvalidChartType)
		}
		next.ChartType = e.Mode

	default:
		return prev, fmt.Errorf("unsupported view event %T", ev)
	}

	return next, nil
}

func clampPoints(points []core.Point, w window.Window) []core.Point {
	return lo.Map(points, func(p core.Point, _ int) core.Point {
		return core.Point{Time: w.Clamp(p.Time), Price: p.Price}
	})
}

// reclamp moves an existing selection into a new window. A two point
// selection whose anchors land on the same instant is dropped.
func reclamp(selection view.Selection, w window.Window) view.Selection {
	points := clampPoints(selection.Points(), w)
	if len(points) == 2 && points[0].Time.Equal(points[1].Time) {
		return view.Selection{}
	}
	clamped, err := view.NewSelection(points...)
	if err != nil {
		return view.Selection{}
	}
	return clamped
}

func (b *Bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, sub := range b.subscribers {
		sub.close()
	}
}
