package renderer

import (
	"fmt"
	"sync"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/store"
	"thoughtgraph/domain/core/aggregates"

	"go.uber.org/zap"
)

// Phase is the lifecycle state of an Adapter
type Phase int

const (
	Uninitialized Phase = iota
	Ready
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Selection is what the user tapped
type Selection struct {
	ID   string
	Kind ports.ElementKind
	Data map[string]interface{}
}

// SelectionHandler receives taps surfaced by the adapter
type SelectionHandler func(Selection)

// Adapter drives a LayoutEngine from graph snapshots.
//
// The engine is mounted on the first non-empty snapshot once a container
// is available. After that every snapshot is synced into the engine, and
// only a non-empty structural diff triggers a relayout of the affected
// elements, so an unchanged snapshot keeps the viewport where it is.
type Adapter struct {
	mu        sync.Mutex
	engine    ports.LayoutEngine
	container *ports.Container
	phase     Phase
	layout    ports.LayoutOptions
	style     ports.Stylesheet
	onSelect  SelectionHandler
	logger    *zap.Logger
}

// Option customizes an Adapter
type Option func(*Adapter)

// WithLayoutOptions overrides DefaultLayoutOptions
func WithLayoutOptions(opts ports.LayoutOptions) Option {
	return func(a *Adapter) {
		a.layout = opts
	}
}

// WithStylesheet overrides DefaultStylesheet
func WithStylesheet(style ports.Stylesheet) Option {
	return func(a *Adapter) {
		a.style = style
	}
}

// WithSelectionHandler registers the callback for taps
func WithSelectionHandler(h SelectionHandler) Option {
	return func(a *Adapter) {
		a.onSelect = h
	}
}

// NewAdapter creates an adapter over engine. Taps on the engine are
// forwarded to the selection handler.
func NewAdapter(engine ports.LayoutEngine, logger *zap.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		engine: engine,
		phase:  Uninitialized,
		layout: DefaultLayoutOptions(),
		style:  DefaultStylesheet(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	engine.OnTap(a.handleTap)
	return a
}

// SetContainer provides the drawing surface. Without one an uninitialized
// adapter keeps waiting; an engine that is already mounted is unaffected.
func (a *Adapter) SetContainer(c *ports.Container) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c == nil {
		a.container = nil
		return
	}
	copied := *c
	a.container = &copied
}

// Phase returns the current lifecycle state
func (a *Adapter) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Render brings the engine in line with data
func (a *Adapter) Render(data aggregates.GraphData) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	elements := ToElements(data.Normalize())

	switch a.phase {
	case Uninitialized:
		return a.initializeLocked(elements)
	case Ready:
		return a.updateLocked(elements)
	default:
		return fmt.Errorf("unknown renderer phase %v", a.phase)
	}
}

func (a *Adapter) initializeLocked(elements []ports.Element) error {
	if len(elements) == 0 || a.container == nil {
		return nil
	}

	if err := a.engine.Mount(*a.container, a.style, elements); err != nil {
		return fmt.Errorf("mount engine: %w", err)
	}
	if err := a.engine.Layout(a.layout, nil); err != nil {
		return fmt.Errorf("initial layout: %w", err)
	}
	a.engine.Fit(a.fitOptions())
	a.phase = Ready

	a.logger.Debug("Renderer ready", zap.Int("elements", len(elements)))
	return nil
}

func (a *Adapter) updateLocked(elements []ports.Element) error {
	diff := a.engine.Sync(elements)
	if diff.IsEmpty() {
		return nil
	}

	if affected := diff.Affected(); len(affected) > 0 {
		if err := a.engine.Layout(a.layout, affected); err != nil {
			return fmt.Errorf("incremental layout: %w", err)
		}
	}
	a.engine.Fit(a.fitOptions())

	a.logger.Debug("Renderer updated",
		zap.Int("added", len(diff.Added)),
		zap.Int("removed", len(diff.Removed)),
		zap.Int("updated", len(diff.Updated)))
	return nil
}

func (a *Adapter) fitOptions() ports.FitOptions {
	duration := a.layout.AnimationDuration
	if duration > MaxAnimation {
		duration = MaxAnimation
	}
	return ports.FitOptions{
		Padding:  a.layout.Padding,
		Animate:  a.layout.Animate,
		Duration: duration,
	}
}

func (a *Adapter) handleTap(ev ports.TapEvent) {
	a.mu.Lock()
	handler := a.onSelect
	a.mu.Unlock()

	if handler != nil {
		handler(Selection{ID: ev.ID, Kind: ev.Kind, Data: ev.Data})
	}
}

// Attach renders every state published by s: the preview when one is
// pending, the committed snapshot otherwise. It renders the current state
// immediately and returns the unsubscribe function.
func (a *Adapter) Attach(s *store.Store) func() {
	var mu sync.Mutex
	var lastVersion uint64
	rendered := false

	render := func(state store.State) {
		mu.Lock()
		defer mu.Unlock()
		if rendered && state.Version < lastVersion {
			return
		}
		rendered, lastVersion = true, state.Version

		if err := a.Render(state.Displayed()); err != nil {
			a.logger.Error("Render failed", zap.Error(err))
		}
	}
	unsubscribe := s.Subscribe(render)
	render(s.State())
	return unsubscribe
}
