// Package panel implements chart panels: views of the shared state that
// render a main series plus overlays and emit interaction events.
package panel

import (
	"context"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/logger"
	"github.com/raykavin/chartsync/pkg/syncbus"
	"github.com/raykavin/chartsync/pkg/view"
)

const selectionColor = "rgba(0, 128, 255, 0.2)"

// Panel is one chart in a synchronized layout.
type Panel interface {
	ID() string
	Kind() view.ChartType
	// Transforms lists the derived series drawn on top of the main series.
	Transforms() []string
	Render(Frame) error
	Emit(view.Event) error
	Bind(Emitter)
}

// Emitter sends events to the bus; *syncbus.Bus implements it.
type Emitter interface {
	Publish(view.Event) error
}

// Source builds frames for a panel; the session implements it.
type Source interface {
	Frame(ctx context.Context, panelID string, state view.State) (Frame, error)
}

type Option func(*base)

func WithTransforms(ids ...string) Option {
	return func(b *base) {
		b.transforms = append(b.transforms, ids...)
	}
}

func WithRenderer(renderer Renderer) Option {
	return func(b *base) {
		b.renderer = renderer
	}
}

// base holds what every chart variant shares.
type base struct {
	id         string
	kind       view.ChartType
	transforms []string
	renderer   Renderer
	emitter    Emitter
}

func newBase(id string, kind view.ChartType, options ...Option) *base {
	b := &base{id: id, kind: kind, renderer: RendererFunc(func(Scene) error { return nil })}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *base) ID() string           { return b.id }
func (b *base) Kind() view.ChartType { return b.kind }
func (b *base) Bind(e Emitter)       { b.emitter = e }

func (b *base) Transforms() []string {
	return append([]string(nil), b.transforms...)
}

// Emit tags ev with the panel id, when it carries none, and publishes it.
func (b *base) Emit(ev view.Event) error {
	if b.emitter == nil {
		return core.ErrBusStopped
	}
	return b.emitter.Publish(tag(ev, b.id))
}

// Zoom, Select, Hover and SwitchType are shorthands for Emit.
func (b *base) Zoom(r core.TimeRange) error {
	return b.Emit(view.RangeChanged{Range: r})
}

func (b *base) Select(points ...core.Point) error {
	return b.Emit(view.SelectionChanged{Points: points})
}

func (b *base) Hover(p *core.Point) error {
	return b.Emit(view.HoverChanged{Point: p})
}

func (b *base) SwitchType(mode view.ChartType) error {
	return b.Emit(view.ChartTypeChanged{Mode: mode})
}

func (b *base) draw(frame Frame, main Mark) error {
	return b.renderer.Draw(scene(frame, main))
}

func tag(ev view.Event, id string) view.Event {
	if ev.Origin() != "" {
		return ev
	}
	switch e := ev.(type) {
	case view.RangeChanged:
		e.PanelID = id
		return e
	case view.SelectionChanged:
		e.PanelID = id
		return e
	case view.HoverChanged:
		e.PanelID = id
		return e
	case view.ChartTypeChanged:
		e.PanelID = id
		return e
	}
	return ev
}

func scene(frame Frame, main Mark) Scene {
	s := Scene{
		Panel:    frame.Panel,
		Version:  frame.State.Version,
		Range:    frame.State.Range,
		Main:     main,
		Overlays: frame.Overlays,
		Hover:    frame.State.Hover,
		PnL:      frame.PnL,
	}
	if entry, ok := frame.State.Selection.Entry(); ok {
		exit, _ := frame.State.Selection.Exit()
		s.Shapes = append(s.Shapes, Shape{
			StartX: entry.Time,
			EndX:   exit.Time,
			StartY: entry.Price,
			EndY:   exit.Price,
			Color:  selectionColor,
		})
	}
	return s
}

// Run renders p for every snapshot its subscription yields, until the
// subscription closes or ctx is done. A snapshot received on refresh is
// rendered again, e.g. after a parameter change, unless the panel already
// rendered a newer one. Frame and render failures are logged and do not
// stop the loop.
func Run(ctx context.Context, p Panel, sub *syncbus.Subscription, source Source, refresh <-chan view.State, log logger.Logger) {
	log = logger.OrNop(log).WithField("panel", p.ID())

	var (
		last     view.State
		rendered bool
	)
	render := func(state view.State) {
		last, rendered = state, true

		frame, err := source.Frame(ctx, p.ID(), state)
		if err != nil {
			log.WithError(err).Errorf("building frame for version %d", state.Version)
			return
		}
		for _, overlay := range frame.Overlays {
			if overlay.Failed() {
				log.WithError(overlay.Err).Debugf("overlay %s unavailable", overlay.TransformID)
			}
		}
		if err := p.Render(frame); err != nil {
			log.WithError(err).Errorf("rendering version %d", state.Version)
		}
	}

	for {
		if state, ok := sub.TryNext(); ok {
			render(state)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			if state, ok := sub.TryNext(); ok {
				render(state)
			}
			return
		case err := <-sub.Rejections():
			log.WithError(err).Warn("event rejected")
		case state := <-refresh:
			if rendered && state.Version < last.Version {
				state = last
			}
			render(state)
		case <-sub.Updates():
		}
	}
}
