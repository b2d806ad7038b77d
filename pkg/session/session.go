// Package session wires a series, its parameters, the derived series engine,
// the sync bus and a set of panels into one interactive chart layout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/derived"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/panel"
	"github.com/raykavin/chartsync/pkg/params"
	"github.com/raykavin/chartsync/pkg/pnl"
	"github.com/raykavin/chartsync/pkg/storage"
	"github.com/raykavin/chartsync/pkg/syncbus"
	"github.com/raykavin/chartsync/pkg/transform"
	"github.com/raykavin/chartsync/pkg/view"
	"github.com/raykavin/chartsync/pkg/window"
)

// Position parameters read by the P&L simulator.
const (
	ParamPositionSize      = "position.size"
	ParamPositionDirection = "position.direction"
)

type Option func(*Session)

func WithLogger(log logger.Logger) Option {
	return func(s *Session) {
		s.log = logger.OrNop(log)
	}
}

// WithTransforms registers overlay transforms. Parameters declared by a
// transform are added to the store with their defaults.
func WithTransforms(transforms ...derived.Transform) Option {
	return func(s *Session) {
		s.transforms = append(s.transforms, transforms...)
	}
}

// WithParameters declares extra parameters, e.g. display settings that no
// transform reads.
func WithParameters(defs ...params.Parameter) Option {
	return func(s *Session) {
		s.extraParams = append(s.extraParams, defs...)
	}
}

func WithEngineOptions(options ...derived.Option) Option {
	return func(s *Session) {
		s.engineOptions = append(s.engineOptions, options...)
	}
}

func WithBusOptions(options ...syncbus.Option) Option {
	return func(s *Session) {
		s.busOptions = append(s.busOptions, options...)
	}
}

// WithPosition sets the default position size and direction.
func WithPosition(size float64, direction pnl.Direction) Option {
	return func(s *Session) {
		s.size, s.direction = size, direction
	}
}

// WithViewRetention bounds how many composed views the view store keeps.
func WithViewRetention(n int) Option {
	return func(s *Session) {
		s.retention = n
	}
}

type running struct {
	panel   panel.Panel
	sub     *syncbus.Subscription
	refresh chan view.State
}

// Session is one interactive chart layout over a single series.
type Session struct {
	series *core.Series
	log    logger.Logger

	params *params.Store
	engine *derived.Engine
	bus    *syncbus.Bus
	views  *storage.BuntStorage

	transforms    []derived.Transform
	extraParams   []params.Parameter
	engineOptions []derived.Option
	busOptions    []syncbus.Option
	size          float64
	direction     pnl.Direction
	retention     int

	mu      sync.RWMutex
	panels  map[string]*running
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool

	pnl        pnl.Result
	pnlErr     error
	pnlVersion uint64
}

func New(series *core.Series, options ...Option) (*Session, error) {
	s := &Session{
		series:    series,
		log:       logger.Nop(),
		size:      1,
		direction: pnl.Long,
		panels:    make(map[string]*running),
	}
	for _, option := range options {
		option(s)
	}

	store, err := params.NewStore(s.log,
		params.Float(ParamPositionSize, s.size, 0, 1e12),
		params.Categorical(ParamPositionDirection, string(s.direction), string(pnl.Long), string(pnl.Short)),
	)
	if err != nil {
		return nil, fmt.Errorf("declaring position parameters: %w", err)
	}
	s.params = store

	for _, def := range s.extraParams {
		if err := s.params.Declare(def); err != nil {
			return nil, err
		}
	}

	s.engine = derived.NewEngine(append([]derived.Option{derived.WithLogger(s.log)}, s.engineOptions...)...)
	for _, t := range s.transforms {
		if p, ok := t.(transform.Parameterized); ok {
			for _, def := range p.Parameters() {
				if err := s.params.Declare(def); err != nil {
					return nil, fmt.Errorf("transform %s: %w", t.ID(), err)
				}
			}
		}
		if err := s.engine.Register(t); err != nil {
			return nil, err
		}
	}

	s.bus, err = syncbus.New(series, append([]syncbus.Option{syncbus.WithLogger(s.log)}, s.busOptions...)...)
	if err != nil {
		return nil, err
	}

	var retention []storage.Option
	if s.retention > 0 {
		retention = append(retention, storage.WithRetention(s.retention))
	}
	if s.views, err = storage.FromMemory(retention...); err != nil {
		return nil, err
	}

	s.bus.OnApply(s.onApply)
	s.params.Subscribe(s.onParamChange)
	s.recomputePnL(s.bus.Current())
	return s, nil
}

func (s *Session) Series() *core.Series        { return s.series }
func (s *Session) Params() *params.Store       { return s.params }
func (s *Session) Engine() *derived.Engine     { return s.engine }
func (s *Session) Bus() *syncbus.Bus           { return s.bus }
func (s *Session) Views() *storage.BuntStorage { return s.views }

// Start runs the bus and every panel loop until ctx is done or Stop.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil || s.stopped {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.bus.Start(s.ctx)
	for _, id := range s.order {
		s.run(s.panels[id])
	}
}

// Stop ends all panel loops and closes the view store.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.bus.Stop()
	s.wg.Wait()
	if err := s.views.Close(); err != nil {
		s.log.WithError(err).Warn("closing view store")
	}
}

// AddPanel subscribes p to the bus. Every transform it lists must be
// registered.
func (s *Session) AddPanel(p panel.Panel) error {
	registered := make(map[string]bool)
	for _, id := range s.engine.Transforms() {
		registered[id] = true
	}
	for _, id := range p.Transforms() {
		if !registered[id] {
			return fmt.Errorf("panel %s: %s: %w", p.ID(), id, core.ErrUnknownTransform)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return core.ErrBusStopped
	}
	if _, ok := s.panels[p.ID()]; ok {
		return fmt.Errorf("panel %s already added", p.ID())
	}

	p.Bind(s.bus)
	r := &running{panel: p, sub: s.bus.Subscribe(p.ID()), refresh: make(chan view.State, 1)}
	s.panels[p.ID()] = r
	s.order = append(s.order, p.ID())

	if s.ctx != nil {
		s.run(r)
	}
	return nil
}

// Panels returns the panel ids in the order they were added.
func (s *Session) Panels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// run starts the loop of r; s.mu is held.
func (s *Session) run(r *running) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		panel.Run(s.ctx, r.panel, r.sub, s, r.refresh, s.log)
	}()
}

// Dispatch applies an event on behalf of the session itself or a panel.
func (s *Session) Dispatch(ctx context.Context, ev view.Event) (view.State, error) {
	return s.bus.Dispatch(ctx, ev)
}

// Frame resolves what panelID needs to render state: the visible bars, its
// overlays and the P&L of the state's selection.
func (s *Session) Frame(ctx context.Context, panelID string, state view.State) (panel.Frame, error) {
	s.mu.RLock()
	r, ok := s.panels[panelID]
	s.mu.RUnlock()
	if !ok {
		return panel.Frame{}, fmt.Errorf("unknown panel %s", panelID)
	}

	w, err := window.Slice(s.series, state.Range)
	if err != nil {
		return panel.Frame{}, err
	}

	ids := r.panel.Transforms()
	outcomes := s.engine.ComputeAll(ctx, state.Version, ids, w, s.params)

	frame := panel.Frame{
		Panel:    panelID,
		State:    state,
		Bars:     w.Bars(),
		Overlays: make([]panel.Overlay, 0, len(ids)),
	}
	for _, id := range ids {
		outcome := outcomes[id]
		frame.Overlays = append(frame.Overlays, panel.Overlay{TransformID: id, Series: outcome.Series, Err: outcome.Err})
	}

	result, err := s.simulate(state.Selection)
	if err == nil {
		frame.PnL = &result
	}
	frame.PnLErr = err
	return frame, nil
}

// PnL returns the P&L of the current selection with the current position
// parameters.
func (s *Session) PnL() (pnl.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pnl, s.pnlErr
}

// ComposedView computes every registered overlay for the current state and
// stores the result in the view store under the state's version.
func (s *Session) ComposedView(ctx context.Context) (storage.View, error) {
	state := s.bus.Current().WithoutHover()

	w, err := window.Slice(s.series, state.Range)
	if err != nil {
		return storage.View{}, err
	}

	outcomes := s.engine.ComputeAll(ctx, state.Version, s.engine.Transforms(), w, s.params)
	v := storage.View{
		Version:  state.Version,
		State:    state,
		Overlays: make(map[string]derived.Series, len(outcomes)),
	}
	for id, outcome := range outcomes {
		if outcome.Err != nil {
			if v.Errors == nil {
				v.Errors = make(map[string]string)
			}
			v.Errors[id] = outcome.Err.Error()
			continue
		}
		v.Overlays[id] = outcome.Series
	}

	if result, err := s.simulate(state.Selection); err == nil {
		v.PnL = &result
	}

	if err := s.views.Save(v); err != nil {
		return storage.View{}, fmt.Errorf("saving view %d: %w", v.Version, err)
	}
	return v, nil
}

func (s *Session) simulate(selection view.Selection) (pnl.Result, error) {
	size, err := s.params.Get(ParamPositionSize)
	if err != nil {
		return pnl.Result{}, err
	}
	raw, err := s.params.Get(ParamPositionDirection)
	if err != nil {
		return pnl.Result{}, err
	}
	direction, err := pnl.ParseDirection(fmt.Sprint(raw))
	if err != nil {
		return pnl.Result{}, err
	}
	return pnl.Simulate(selection, direction, size.(float64))
}

func (s *Session) recomputePnL(state view.State) {
	result, err := s.simulate(state.Selection)

	var incomplete *core.IncompleteSelectionError
	switch {
	case err == nil:
		s.log.Debugf("P&L at version %d: %.4f (%.2f%%)", state.Version, result.Absolute, result.Percent)
	case errors.As(err, &incomplete):
	default:
		s.log.WithError(err).Warn("P&L unavailable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Version < s.pnlVersion {
		return
	}
	s.pnl, s.pnlErr, s.pnlVersion = result, err, state.Version
}

// onApply runs on the bus goroutine for every new view version.
func (s *Session) onApply(prev, next view.State) {
	w, err := window.Slice(s.series, next.Range)
	if err != nil {
		w = window.Window{}
	}
	s.engine.Advance(next.Version, w)
	if !prev.Selection.Equal(next.Selection) {
		s.recomputePnL(next)
	}
}

// onParamChange re-renders every panel; position changes also recompute
// the P&L.
func (s *Session) onParamChange(change params.Change) {
	if change.Name == ParamPositionSize || change.Name == ParamPositionDirection {
		s.recomputePnL(s.bus.Current())
	}

	current := s.bus.Current()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.panels {
		r.requestRefresh(current)
	}
}

// requestRefresh replaces any refresh still waiting in the buffer.
func (r *running) requestRefresh(state view.State) {
	for {
		select {
		case r.refresh <- state:
			return
		default:
		}
		select {
		case <-r.refresh:
		default:
		}
	}
}
