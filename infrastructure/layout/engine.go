package layout

import (
	"errors"
	"hash/fnv"
	"math"
	"reflect"
	"sync"
	"time"

	"thoughtgraph/application/ports"

	"go.uber.org/zap"
)

// Zoom limits of the viewport
const (
	MinZoom = 0.2
	MaxZoom = 3.0
)

var (
	ErrNotMounted     = errors.New("layout engine is not mounted")
	ErrInvalidSurface = errors.New("container must have a positive size")
)

// Point is a node position in model coordinates
type Point struct {
	X float64
	Y float64
}

// Engine is a headless force-directed graph engine. It keeps an element
// set keyed by id, node positions, a viewport and the tap selection.
//
// Engine is safe for concurrent use. Tap handlers run without the lock
// held.
type Engine struct {
	mu        sync.Mutex
	mounted   bool
	container ports.Container
	style     ports.Stylesheet
	elements  map[string]ports.Element
	order     []string
	positions map[string]Point
	selected  string
	viewport  ports.Viewport
	animation time.Duration
	runs      int
	handlers  []ports.TapHandler
	logger    *zap.Logger
}

var _ ports.LayoutEngine = (*Engine)(nil)

// NewEngine creates an unmounted engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		elements:  make(map[string]ports.Element),
		positions: make(map[string]Point),
		viewport:  ports.Viewport{Zoom: 1},
		logger:    logger,
	}
}

// Mount attaches the engine to a container and installs the elements
func (e *Engine) Mount(container ports.Container, style ports.Stylesheet, elements []ports.Element) error {
	if container.Width <= 0 || container.Height <= 0 {
		return ErrInvalidSurface
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.container = container
	e.style = append(ports.Stylesheet(nil), style...)
	e.mounted = true
	e.viewport = ports.Viewport{Zoom: 1}
	e.syncLocked(elements)

	e.logger.Debug("Layout engine mounted",
		zap.Float64("width", container.Width),
		zap.Float64("height", container.Height),
		zap.Int("elements", len(elements)))
	return nil
}

// IsMounted reports whether Mount succeeded
func (e *Engine) IsMounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// Sync replaces the element set and reports added, removed and updated ids
func (e *Engine) Sync(elements []ports.Element) ports.Diff {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncLocked(elements)
}

func (e *Engine) syncLocked(elements []ports.Element) ports.Diff {
	var diff ports.Diff
	next := make(map[string]ports.Element, len(elements))
	order := make([]string, 0, len(elements))

	for _, el := range elements {
		if _, dup := next[el.ID]; dup {
			continue
		}
		next[el.ID] = el
		order = append(order, el.ID)

		prev, existed := e.elements[el.ID]
		switch {
		case !existed:
			diff.Added = append(diff.Added, el.ID)
		case !sameElement(prev, el):
			diff.Updated = append(diff.Updated, el.ID)
		}
	}

	for _, id := range e.order {
		if _, keep := next[id]; !keep {
			diff.Removed = append(diff.Removed, id)
			delete(e.positions, id)
			if e.selected == id {
				e.selected = ""
			}
		}
	}

	// A node that became an edge under the same id loses its position
	for id, el := range next {
		if el.Kind != ports.ElementNode {
			delete(e.positions, id)
		}
	}

	e.elements = next
	e.order = order
	return diff
}

func sameElement(a, b ports.Element) bool {
	if a.Kind != b.Kind || a.Label != b.Label || a.Source != b.Source || a.Target != b.Target {
		return false
	}
	if len(a.Data) == 0 && len(b.Data) == 0 {
		return true
	}
	return reflect.DeepEqual(a.Data, b.Data)
}

// Layout runs the force simulation. Only nodes named in ids move; a nil
// ids moves every node. Edge ids are accepted and ignored.
func (e *Engine) Layout(opts ports.LayoutOptions, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.mounted {
		return ErrNotMounted
	}

	nodes := e.nodeIDsLocked()
	movable := make(map[string]bool, len(nodes))
	if ids == nil {
		for _, id := range nodes {
			movable[id] = true
		}
	} else {
		for _, id := range ids {
			if el, ok := e.elements[id]; ok && el.Kind == ports.ElementNode {
				movable[id] = true
			}
		}
	}

	e.placeLocked(nodes, movable, opts)
	e.simulateLocked(nodes, movable, opts)
	e.runs++

	e.logger.Debug("Layout completed",
		zap.Int("nodes", len(nodes)),
		zap.Int("moved", len(movable)))
	return nil
}

func (e *Engine) nodeIDsLocked() []string {
	ids := make([]string, 0, len(e.order))
	for _, id := range e.order {
		if e.elements[id].Kind == ports.ElementNode {
			ids = append(ids, id)
		}
	}
	return ids
}

// placeLocked gives an initial position to every node that lacks one and,
// with Randomize, to every movable node. Placement is a pure function of
// the ids, so layouts are reproducible.
func (e *Engine) placeLocked(nodes []string, movable map[string]bool, opts ports.LayoutOptions) {
	ideal := opts.IdealEdgeLength
	if ideal <= 0 {
		ideal = 100
	}

	for i, id := range nodes {
		_, has := e.positions[id]
		if has && !(opts.Randomize && movable[id]) {
			continue
		}

		if !opts.Randomize {
			if anchor, ok := e.neighbourCentroidLocked(id); ok {
				angle := hashAngle(id)
				e.positions[id] = Point{X: anchor.X + ideal*math.Cos(angle), Y: anchor.Y + ideal*math.Sin(angle)}
				continue
			}
		}

		// Golden-angle spiral keeps unconnected nodes apart
		angle := float64(i)*2.399963229728653 + hashAngle(id)*boolToFloat(opts.Randomize)
		radius := ideal * math.Sqrt(float64(i+1))
		e.positions[id] = Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
}

func (e *Engine) neighbourCentroidLocked(id string) (Point, bool) {
	var sum Point
	count := 0
	for _, eid := range e.order {
		el := e.elements[eid]
		if el.Kind != ports.ElementEdge {
			continue
		}
		var other string
		switch id {
		case el.Source:
			other = el.Target
		case el.Target:
			other = el.Source
		default:
			continue
		}
		if p, ok := e.positions[other]; ok && other != id {
			sum.X += p.X
			sum.Y += p.Y
			count++
		}
	}
	if count == 0 {
		return Point{}, false
	}
	return Point{X: sum.X / float64(count), Y: sum.Y / float64(count)}, true
}

// simulateLocked is a cooling force simulation in the style of cose:
// pairwise repulsion, spring attraction along edges and gravity towards
// the origin. Per-iteration displacement is capped by the temperature.
func (e *Engine) simulateLocked(nodes []string, movable map[string]bool, opts ports.LayoutOptions) {
	if len(movable) == 0 {
		return
	}

	ideal := positiveOr(opts.IdealEdgeLength, 100)
	repulsion := positiveOr(opts.NodeRepulsion, 400000)
	elasticity := positiveOr(opts.EdgeElasticity, 100)
	cooling := opts.CoolingFactor
	if cooling <= 0 || cooling >= 1 {
		cooling = 0.95
	}
	temp := positiveOr(opts.InitialTemp, 200)
	minTemp := positiveOr(opts.MinTemp, 1)
	iterations := opts.NumIter
	if iterations <= 0 {
		iterations = 1000
	}

	var edges [][2]string
	for _, id := range e.order {
		el := e.elements[id]
		if el.Kind != ports.ElementEdge || el.Source == el.Target {
			continue
		}
		_, okS := e.positions[el.Source]
		_, okT := e.positions[el.Target]
		if okS && okT {
			edges = append(edges, [2]string{el.Source, el.Target})
		}
	}

	for iter := 0; iter < iterations && temp >= minTemp; iter++ {
		disp := make(map[string]Point, len(movable))

		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				if !movable[a] && !movable[b] {
					continue
				}
				dx, dy, dist := separation(e.positions[a], e.positions[b], a, b)
				force := repulsion / (dist * dist)
				fx, fy := dx/dist*force, dy/dist*force
				addDisp(disp, movable, a, fx, fy)
				addDisp(disp, movable, b, -fx, -fy)
			}
		}

		for _, edge := range edges {
			s, t := edge[0], edge[1]
			dx, dy, dist := separation(e.positions[t], e.positions[s], t, s)
			force := (dist - ideal) * math.Abs(dist-ideal) / elasticity
			fx, fy := dx/dist*force, dy/dist*force
			addDisp(disp, movable, s, fx, fy)
			addDisp(disp, movable, t, -fx, -fy)
		}

		if opts.Gravity > 0 {
			for id := range movable {
				p := e.positions[id]
				dist := math.Hypot(p.X, p.Y)
				if dist < 1e-9 {
					continue
				}
				force := opts.Gravity * dist / (10 * ideal)
				addDisp(disp, movable, id, -p.X/dist*force, -p.Y/dist*force)
			}
		}

		for _, id := range nodes {
			d, ok := disp[id]
			if !ok {
				continue
			}
			length := math.Hypot(d.X, d.Y)
			if length < 1e-9 || math.IsNaN(length) {
				continue
			}
			step := math.Min(length, temp)
			p := e.positions[id]
			e.positions[id] = Point{X: p.X + d.X/length*step, Y: p.Y + d.Y/length*step}
		}

		temp *= cooling
	}
}

// separation returns the vector from b to a and its length. Coincident
// nodes are pushed apart along a direction derived from their ids.
func separation(a, b Point, idA, idB string) (float64, float64, float64) {
	dx, dy := a.X-b.X, a.Y-b.Y
	dist := math.Hypot(dx, dy)
	if dist < 0.01 {
		angle := hashAngle(idA + "\x00" + idB)
		dx, dy, dist = math.Cos(angle)*0.01, math.Sin(angle)*0.01, 0.01
	}
	return dx, dy, dist
}

func addDisp(disp map[string]Point, movable map[string]bool, id string, fx, fy float64) {
	if !movable[id] {
		return
	}
	d := disp[id]
	disp[id] = Point{X: d.X + fx, Y: d.Y + fy}
}

// Fit centres the nodes in the container and zooms so they fill it minus
// padding. Zoom is clamped to [MinZoom, MaxZoom].
func (e *Engine) Fit(opts ports.FitOptions) ports.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.mounted || len(e.positions) == 0 {
		return e.viewport
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range e.positions {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	availW := math.Max(e.container.Width-2*opts.Padding, 1)
	availH := math.Max(e.container.Height-2*opts.Padding, 1)
	w, h := maxX-minX, maxY-minY

	zoom := MaxZoom
	if w > 0 {
		zoom = math.Min(zoom, availW/w)
	}
	if h > 0 {
		zoom = math.Min(zoom, availH/h)
	}
	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	e.viewport = ports.Viewport{
		Zoom: zoom,
		PanX: e.container.Width/2 - zoom*cx,
		PanY: e.container.Height/2 - zoom*cy,
	}
	e.animation = 0
	if opts.Animate {
		e.animation = opts.Duration
	}
	return e.viewport
}

// Viewport returns the current pan and zoom
func (e *Engine) Viewport() ports.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// LastAnimation returns the animation duration of the last fit
func (e *Engine) LastAnimation() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.animation
}

// LayoutRuns counts completed Layout calls
func (e *Engine) LayoutRuns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// OnTap registers a tap handler
func (e *Engine) OnTap(handler ports.TapHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Tap selects the element and notifies tap handlers. It reports whether
// the element exists.
func (e *Engine) Tap(id string) bool {
	e.mu.Lock()
	el, ok := e.elements[id]
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.selected = id
	handlers := append([]ports.TapHandler(nil), e.handlers...)
	e.mu.Unlock()

	event := ports.TapEvent{ID: el.ID, Kind: el.Kind, Data: elementData(el)}
	for _, h := range handlers {
		h(event)
	}
	return true
}

// Selected returns the highlighted element id, "" if none
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Positions returns a copy of the node positions
func (e *Engine) Positions() map[string]Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]Point, len(e.positions))
	for id, p := range e.positions {
		out[id] = p
	}
	return out
}

// Elements returns the current elements in sync order
func (e *Engine) Elements() []ports.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ports.Element, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.elements[id])
	}
	return out
}

// Style returns the stylesheet given at mount, with rules for selector
// in order of appearance.
func (e *Engine) Style(selector string) []ports.StyleRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	var rules []ports.StyleRule
	for _, r := range e.style {
		if r.Selector == selector {
			rules = append(rules, r)
		}
	}
	return rules
}

func elementData(el ports.Element) map[string]interface{} {
	data := make(map[string]interface{}, len(el.Data)+4)
	for k, v := range el.Data {
		data[k] = v
	}
	data["id"] = el.ID
	data["label"] = el.Label
	if el.Kind == ports.ElementEdge {
		data["source"] = el.Source
		data["target"] = el.Target
	}
	return data
}

func hashAngle(s string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum64()%3600) / 3600 * 2 * math.Pi
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
