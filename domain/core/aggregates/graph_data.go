package aggregates

import (
	"errors"
	"fmt"

	"thoughtgraph/domain/core/valueobjects"
)

// EdgeTypeRelation is the edge type the client assigns to edges it
// derives from arrow text.
const EdgeTypeRelation = "RELATION"

// GraphNode is one concept in a graph snapshot.
// IDs are unique within a snapshot.
type GraphNode struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// DisplayLabel returns the label, falling back to the id
func (n GraphNode) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// GraphEdge connects two nodes of the same snapshot.
// Source and target are expected to reference nodes of the snapshot; the
// renderer does not check this.
type GraphEdge struct {
	ID         string                 `json:"id,omitempty"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Label      string                 `json:"label,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ElementID returns the backend id, or a deterministic id derived from
// (source, target, label) when the backend did not send one.
func (e GraphEdge) ElementID() string {
	if e.ID != "" {
		return e.ID
	}
	return valueobjects.NewEdgeID(e.Source, e.Target, e.Label).String()
}

// GraphData is a complete snapshot of a graph.
// Snapshots replace each other wholesale; order carries no meaning.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EmptyGraphData returns a snapshot with no nodes and no edges
func EmptyGraphData() GraphData {
	return GraphData{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// IsEmpty reports whether the snapshot has no elements at all
func (g GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}

// Normalize replaces nil collections with empty ones, so a response of
// {"nodes": null} is handled like an empty graph.
func (g GraphData) Normalize() GraphData {
	if g.Nodes == nil {
		g.Nodes = []GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []GraphEdge{}
	}
	return g
}

// Clone returns a copy whose slices and property bags are not shared
// with the receiver.
func (g GraphData) Clone() GraphData {
	out := GraphData{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Edges: make([]GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		n.Properties = cloneProperties(n.Properties)
		out.Nodes[i] = n
	}
	for i, e := range g.Edges {
		e.Properties = cloneProperties(e.Properties)
		out.Edges[i] = e
	}
	return out
}

// NodeIDs returns node ids in snapshot order
func (g GraphData) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// ErrDuplicateNode and ErrDanglingEdge are returned by Validate.
var (
	ErrDuplicateNode = errors.New("duplicate node id")
	ErrDanglingEdge  = errors.New("edge references unknown node")
	ErrEmptyNodeID   = errors.New("node id cannot be empty")
)

// Validate checks node id uniqueness and that every edge references
// nodes of this snapshot.
func (g GraphData) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return ErrEmptyNodeID
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("%w: %s -> %s (source)", ErrDanglingEdge, e.Source, e.Target)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("%w: %s -> %s (target)", ErrDanglingEdge, e.Source, e.Target)
		}
	}
	return nil
}

// Merge returns base extended with the nodes and edges of addition.
// Nodes are matched by id and edges by element id; on a match the
// addition's version wins.
func Merge(base, addition GraphData) GraphData {
	out := base.Clone()

	nodeIndex := make(map[string]int, len(out.Nodes))
	for i, n := range out.Nodes {
		nodeIndex[n.ID] = i
	}
	for _, n := range addition.Clone().Nodes {
		if i, ok := nodeIndex[n.ID]; ok {
			out.Nodes[i] = n
			continue
		}
		nodeIndex[n.ID] = len(out.Nodes)
		out.Nodes = append(out.Nodes, n)
	}

	edgeIndex := make(map[string]int, len(out.Edges))
	for i, e := range out.Edges {
		edgeIndex[e.ElementID()] = i
	}
	for _, e := range addition.Clone().Edges {
		id := e.ElementID()
		if i, ok := edgeIndex[id]; ok {
			out.Edges[i] = e
			continue
		}
		edgeIndex[id] = len(out.Edges)
		out.Edges = append(out.Edges, e)
	}

	return out
}

func cloneProperties(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
