package services

import (
	"regexp"
	"strings"

	"thoughtgraph/domain/core/aggregates"
)

// arrowPattern matches the first "A -> B" pair on a line.
var arrowPattern = regexp.MustCompile(`(\w+)\s*->\s*(\w+)`)

// ParseArrowText builds a preview snapshot from lines of the form "A -> B".
//
// This is a local convenience for optimistic display while the backend
// processes the same text. It is not equivalent to the backend's
// extraction and its output is never committed as the graph of record.
//
// Nodes are unique and kept in order of first appearance. A pair that
// repeats yields a single edge. Lines without an arrow are ignored.
func ParseArrowText(text string) aggregates.GraphData {
	graph := aggregates.EmptyGraphData()
	seenNodes := make(map[string]struct{})
	seenEdges := make(map[string]struct{})

	addNode := func(id string) {
		if _, ok := seenNodes[id]; ok {
			return
		}
		seenNodes[id] = struct{}{}
		graph.Nodes = append(graph.Nodes, aggregates.GraphNode{ID: id, Label: id})
	}

	for _, line := range strings.Split(text, "\n") {
		match := arrowPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		from, to := match[1], match[2]
		addNode(from)
		addNode(to)

		edge := aggregates.GraphEdge{Source: from, Target: to, Type: aggregates.EdgeTypeRelation}
		id := edge.ElementID()
		if _, ok := seenEdges[id]; ok {
			continue
		}
		seenEdges[id] = struct{}{}
		graph.Edges = append(graph.Edges, edge)
	}

	return graph
}
