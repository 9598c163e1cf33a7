package cli

import (
	"math"
	"sort"
	"strings"

	"thoughtgraph/application/ports"
	"thoughtgraph/infrastructure/layout"
)

// Character cell size in layout pixels. Terminal cells are about twice as
// tall as they are wide.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

// containerFor returns the layout surface matching a cols x rows terminal
// area
func containerFor(cols, rows int) *ports.Container {
	return &ports.Container{Width: float64(cols) * cellWidth, Height: float64(rows) * cellHeight}
}

// drawCanvas draws the engine's current picture onto a cols x rows grid:
// edges as dotted lines, nodes as '*' followed by their label. The
// selected element is marked with '@'.
func drawCanvas(engine *layout.Engine, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}

	positions := engine.Positions()
	viewport := engine.Viewport()
	toCell := func(p layout.Point) (int, int) {
		x := (p.X*viewport.Zoom + viewport.PanX) / cellWidth
		y := (p.Y*viewport.Zoom + viewport.PanY) / cellHeight
		return int(math.Floor(x)), int(math.Floor(y))
	}
	set := func(col, row int, r rune) {
		if row >= 0 && row < rows && col >= 0 && col < cols {
			grid[row][col] = r
		}
	}

	var nodes []ports.Element
	for _, el := range engine.Elements() {
		if el.Kind == ports.ElementNode {
			nodes = append(nodes, el)
			continue
		}
		from, okFrom := positions[el.Source]
		to, okTo := positions[el.Target]
		if !okFrom || !okTo {
			continue
		}
		c0, r0 := toCell(from)
		c1, r1 := toCell(to)
		for _, cell := range line(c0, r0, c1, r1) {
			set(cell[0], cell[1], '.')
		}
	}

	// Labels are drawn top to bottom, left to right so overlaps resolve the
	// same way every time.
	sort.SliceStable(nodes, func(i, j int) bool {
		ci, ri := toCell(positions[nodes[i].ID])
		cj, rj := toCell(positions[nodes[j].ID])
		if ri != rj {
			return ri < rj
		}
		return ci < cj
	})

	selected := engine.Selected()
	for _, node := range nodes {
		p, ok := positions[node.ID]
		if !ok {
			continue
		}
		col, row := toCell(p)
		marker := '*'
		if node.ID == selected {
			marker = '@'
		}
		set(col, row, marker)
		label := node.Label
		if label == "" {
			label = node.ID
		}
		for i, r := range []rune(label) {
			set(col+1+i, row, r)
		}
	}

	lines := make([]string, rows)
	for i, row := range grid {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

// line returns the cells of a Bresenham line between two cells,
// endpoints excluded
func line(x0, y0, x1, y1 int) [][2]int {
	var cells [][2]int
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		if x == x1 && y == y1 {
			break
		}
		cells = append(cells, [2]int{x, y})
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
