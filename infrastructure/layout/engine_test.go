package layout

import (
	"math"
	"testing"
	"time"

	"thoughtgraph/application/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var container = ports.Container{Width: 800, Height: 600}

func testOptions() ports.LayoutOptions {
	return ports.LayoutOptions{
		IdealEdgeLength: 100,
		NodeRepulsion:   400000,
		EdgeElasticity:  100,
		Gravity:         80,
		NumIter:         1000,
		InitialTemp:     200,
		CoolingFactor:   0.95,
		MinTemp:         1.0,
		Padding:         60,
	}
}

func node(id string) ports.Element {
	return ports.Element{ID: id, Kind: ports.ElementNode, Label: id}
}

func edge(source, target string) ports.Element {
	return ports.Element{ID: source + "_" + target + "_", Kind: ports.ElementEdge, Source: source, Target: target}
}

func chain() []ports.Element {
	return []ports.Element{node("A"), node("B"), node("C"), edge("A", "B"), edge("B", "C")}
}

func mounted(t *testing.T, elements []ports.Element) *Engine {
	t.Helper()
	e := NewEngine(zap.NewNop())
	require.NoError(t, e.Mount(container, nil, elements))
	return e
}

func TestEngine_Mount(t *testing.T) {
	e := NewEngine(zap.NewNop())
	assert.False(t, e.IsMounted())

	err := e.Mount(ports.Container{}, nil, chain())
	assert.ErrorIs(t, err, ErrInvalidSurface)
	assert.False(t, e.IsMounted())

	require.NoError(t, e.Mount(container, ports.Stylesheet{{Selector: "node"}}, chain()))
	assert.True(t, e.IsMounted())
	assert.Len(t, e.Elements(), 5)
	assert.Len(t, e.Style("node"), 1)
}

func TestEngine_LayoutRequiresMount(t *testing.T) {
	e := NewEngine(zap.NewNop())
	assert.ErrorIs(t, e.Layout(testOptions(), nil), ErrNotMounted)
}

func TestEngine_Sync(t *testing.T) {
	e := mounted(t, chain())

	t.Run("identical set is an empty diff", func(t *testing.T) {
		diff := e.Sync(chain())
		assert.True(t, diff.IsEmpty())
	})

	t.Run("reports added removed and updated", func(t *testing.T) {
		next := []ports.Element{
			{ID: "A", Kind: ports.ElementNode, Label: "Alpha"},
			node("B"),
			node("D"),
			edge("A", "B"),
		}

		diff := e.Sync(next)

		assert.Equal(t, []string{"D"}, diff.Added)
		assert.Equal(t, []string{"A"}, diff.Updated)
		assert.ElementsMatch(t, []string{"C", "B_C_"}, diff.Removed)
		assert.Equal(t, []string{"D", "A"}, diff.Affected())
	})
}

func TestEngine_LayoutIsDeterministic(t *testing.T) {
	first := mounted(t, chain())
	second := mounted(t, chain())

	require.NoError(t, first.Layout(testOptions(), nil))
	require.NoError(t, second.Layout(testOptions(), nil))

	assert.Equal(t, first.Positions(), second.Positions())
}

func TestEngine_LayoutProducesSeparatedFinitePositions(t *testing.T) {
	e := mounted(t, chain())
	require.NoError(t, e.Layout(testOptions(), nil))

	positions := e.Positions()
	require.Len(t, positions, 3)
	for id, p := range positions {
		assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y), id)
		assert.False(t, math.IsInf(p.X, 0) || math.IsInf(p.Y, 0), id)
	}
	assert.Greater(t, distance(positions["A"], positions["B"]), 1.0)
	assert.Greater(t, distance(positions["A"], positions["C"]), 1.0)
	assert.Equal(t, 1, e.LayoutRuns())
}

func TestEngine_SubsetLayoutKeepsOtherNodes(t *testing.T) {
	e := mounted(t, chain())
	require.NoError(t, e.Layout(testOptions(), nil))
	before := e.Positions()

	diff := e.Sync(append(chain(), node("D"), edge("C", "D")))
	require.NoError(t, e.Layout(testOptions(), diff.Affected()))

	after := e.Positions()
	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, before[id], after[id], id)
	}
	assert.Contains(t, after, "D")
}

func TestEngine_SyncDropsRemovedPositions(t *testing.T) {
	e := mounted(t, chain())
	require.NoError(t, e.Layout(testOptions(), nil))
	kept := e.Positions()["A"]

	e.Sync([]ports.Element{node("A")})

	positions := e.Positions()
	assert.Len(t, positions, 1)
	assert.Equal(t, kept, positions["A"])
}

func TestEngine_Fit(t *testing.T) {
	t.Run("single node clamps to max zoom and centres", func(t *testing.T) {
		e := mounted(t, []ports.Element{node("A")})
		require.NoError(t, e.Layout(testOptions(), nil))

		vp := e.Fit(ports.FitOptions{Padding: 60})

		p := e.Positions()["A"]
		assert.Equal(t, MaxZoom, vp.Zoom)
		assert.InDelta(t, container.Width/2, vp.PanX+vp.Zoom*p.X, 1e-9)
		assert.InDelta(t, container.Height/2, vp.PanY+vp.Zoom*p.Y, 1e-9)
	})

	t.Run("wide spread clamps to min zoom", func(t *testing.T) {
		e := mounted(t, []ports.Element{node("A"), node("B")})
		e.positions["A"] = Point{X: -100000, Y: 0}
		e.positions["B"] = Point{X: 100000, Y: 0}

		vp := e.Fit(ports.FitOptions{Padding: 60})

		assert.Equal(t, MinZoom, vp.Zoom)
	})

	t.Run("content fits inside the padded container", func(t *testing.T) {
		e := mounted(t, chain())
		require.NoError(t, e.Layout(testOptions(), nil))

		vp := e.Fit(ports.FitOptions{Padding: 60, Animate: true, Duration: 500 * time.Millisecond})

		for id, p := range e.Positions() {
			x, y := vp.PanX+vp.Zoom*p.X, vp.PanY+vp.Zoom*p.Y
			assert.GreaterOrEqual(t, x, 60.0-1e-6, id)
			assert.LessOrEqual(t, x, container.Width-60+1e-6, id)
			assert.GreaterOrEqual(t, y, 60.0-1e-6, id)
			assert.LessOrEqual(t, y, container.Height-60+1e-6, id)
		}
		assert.Equal(t, 500*time.Millisecond, e.LastAnimation())
		assert.Equal(t, vp, e.Viewport())
	})
}

func TestEngine_Tap(t *testing.T) {
	e := mounted(t, chain())

	var events []ports.TapEvent
	e.OnTap(func(ev ports.TapEvent) { events = append(events, ev) })

	assert.False(t, e.Tap("missing"))
	assert.True(t, e.Tap("A_B_"))

	require.Len(t, events, 1)
	assert.Equal(t, ports.ElementEdge, events[0].Kind)
	assert.Equal(t, "A", events[0].Data["source"])
	assert.Equal(t, "B", events[0].Data["target"])
	assert.Equal(t, "A_B_", e.Selected())

	e.Sync([]ports.Element{node("A")})
	assert.Empty(t, e.Selected(), "removing the element clears the highlight")
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
