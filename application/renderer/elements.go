package renderer

import (
	"time"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/aggregates"
)

// MaxAnimation bounds the viewport animation after a relayout
const MaxAnimation = 500 * time.Millisecond

// DefaultLayoutOptions returns the cose parameters the graph view uses
func DefaultLayoutOptions() ports.LayoutOptions {
	return ports.LayoutOptions{
		IdealEdgeLength:   100,
		NodeRepulsion:     400000,
		EdgeElasticity:    100,
		Gravity:           80,
		NumIter:           1000,
		InitialTemp:       200,
		CoolingFactor:     0.95,
		MinTemp:           1.0,
		Randomize:         false,
		Padding:           60,
		Animate:           true,
		AnimationDuration: MaxAnimation,
	}
}

// DefaultStylesheet returns the node and edge styles of the graph view
func DefaultStylesheet() ports.Stylesheet {
	return ports.Stylesheet{
		{Selector: "node", Properties: map[string]string{
			"background-color": "#4B5563",
			"label":            "data(label)",
			"width":            "label",
			"height":           "label",
			"padding":          "10px",
			"shape":            "round-rectangle",
			"text-valign":      "center",
			"text-halign":      "center",
			"color":            "#FFFFFF",
			"font-size":        "12px",
			"border-width":     "1",
			"border-color":     "#374151",
		}},
		{Selector: "node:selected", Properties: map[string]string{
			"background-color": "#3B82F6",
			"border-width":     "2",
			"border-color":     "#1D4ED8",
		}},
		{Selector: "edge", Properties: map[string]string{
			"width":              "1.5",
			"line-color":         "#D1D5DB",
			"target-arrow-color": "#9CA3AF",
			"target-arrow-shape": "triangle",
			"curve-style":        "bezier",
			"label":              "data(label)",
			"font-size":          "10px",
			"color":              "#6B7280",
			"text-rotation":      "autorotate",
			"text-margin-y":      "-10",
			"arrow-scale":        "1",
		}},
		{Selector: "edge:selected", Properties: map[string]string{
			"line-color":         "#3B82F6",
			"target-arrow-color": "#3B82F6",
			"width":              "2.5",
		}},
	}
}

// ToElements maps a snapshot to engine elements, nodes first. Node labels
// fall back to the id; edges without an id get a synthesized one.
func ToElements(data aggregates.GraphData) []ports.Element {
	elements := make([]ports.Element, 0, len(data.Nodes)+len(data.Edges))
	for _, n := range data.Nodes {
		elements = append(elements, ports.Element{
			ID:    n.ID,
			Kind:  ports.ElementNode,
			Label: n.DisplayLabel(),
			Data:  copyData(n.Properties),
		})
	}
	for _, e := range data.Edges {
		el := ports.Element{
			ID:     e.ElementID(),
			Kind:   ports.ElementEdge,
			Label:  e.Label,
			Source: e.Source,
			Target: e.Target,
			Data:   copyData(e.Properties),
		}
		if e.Type != "" {
			if el.Data == nil {
				el.Data = map[string]interface{}{}
			}
			el.Data["type"] = e.Type
		}
		elements = append(elements, el)
	}
	return elements
}

func copyData(props map[string]interface{}) map[string]interface{} {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
