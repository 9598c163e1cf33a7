package ports

import "time"

// ElementKind distinguishes nodes from edges in the rendering engine
type ElementKind string

const (
	ElementNode ElementKind = "node"
	ElementEdge ElementKind = "edge"
)

// Element is a node or edge definition handed to a LayoutEngine.
// Source and Target are set for edges only.
type Element struct {
	ID     string
	Kind   ElementKind
	Label  string
	Source string
	Target string
	Data   map[string]interface{}
}

// StyleRule applies visual properties to elements matching a selector
// such as "node" or "edge:selected".
type StyleRule struct {
	Selector   string
	Properties map[string]string
}

type Stylesheet []StyleRule

// Container is the drawing surface an engine is mounted on
type Container struct {
	Width  float64
	Height float64
}

// Diff is the structural difference applied by LayoutEngine.Sync
type Diff struct {
	Added   []string
	Removed []string
	Updated []string
}

// IsEmpty reports whether the sync changed nothing
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

// Affected returns the ids that need positions: added and updated
func (d Diff) Affected() []string {
	out := make([]string, 0, len(d.Added)+len(d.Updated))
	out = append(out, d.Added...)
	return append(out, d.Updated...)
}

// LayoutOptions configures a force-directed layout run
type LayoutOptions struct {
	IdealEdgeLength   float64
	NodeRepulsion     float64
	EdgeElasticity    float64
	Gravity           float64
	NumIter           int
	InitialTemp       float64
	CoolingFactor     float64
	MinTemp           float64
	Randomize         bool
	Padding           float64
	Animate           bool
	AnimationDuration time.Duration
}

// FitOptions configures a viewport fit
type FitOptions struct {
	Padding  float64
	Animate  bool
	Duration time.Duration
}

// Viewport is the pan and zoom of a mounted engine
type Viewport struct {
	Zoom float64
	PanX float64
	PanY float64
}

// TapEvent is emitted when the user taps an element
type TapEvent struct {
	ID   string
	Kind ElementKind
	Data map[string]interface{}
}

type TapHandler func(TapEvent)

// LayoutEngine is the rendering engine driven by the renderer adapter.
type LayoutEngine interface {
	// Mount attaches the engine to a container with an initial element set
	Mount(container Container, style Stylesheet, elements []Element) error
	IsMounted() bool

	// Sync replaces the element set and reports what changed. Positions of
	// surviving nodes are kept.
	Sync(elements []Element) Diff

	// Layout positions the given ids, or every element when ids is nil.
	Layout(opts LayoutOptions, ids []string) error

	// Fit adjusts the viewport so all elements are visible
	Fit(opts FitOptions) Viewport
	Viewport() Viewport

	OnTap(handler TapHandler)
}
