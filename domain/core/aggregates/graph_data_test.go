package aggregates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() GraphData {
	return GraphData{
		Nodes: []GraphNode{
			{ID: "A", Label: "Alpha"},
			{ID: "B"},
		},
		Edges: []GraphEdge{
			{Source: "A", Target: "B", Label: "knows"},
		},
	}
}

func TestGraphEdge_ElementID(t *testing.T) {
	t.Run("backend id wins", func(t *testing.T) {
		e := GraphEdge{ID: "e1", Source: "A", Target: "B"}
		assert.Equal(t, "e1", e.ElementID())
	})

	t.Run("synthesized id is stable across snapshots", func(t *testing.T) {
		first := sampleGraph().Edges[0].ElementID()
		second := sampleGraph().Edges[0].ElementID()
		assert.Equal(t, first, second)
		assert.Equal(t, "A_B_knows", first)
	})
}

func TestGraphNode_DisplayLabel(t *testing.T) {
	g := sampleGraph()
	assert.Equal(t, "Alpha", g.Nodes[0].DisplayLabel())
	assert.Equal(t, "B", g.Nodes[1].DisplayLabel())
}

func TestGraphData_NormalizeNullCollections(t *testing.T) {
	var g GraphData
	require.NoError(t, json.Unmarshal([]byte(`{"nodes":null}`), &g))

	g = g.Normalize()

	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.True(t, g.IsEmpty())
}

func TestGraphData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   GraphData
		wantErr error
	}{
		{name: "valid", graph: sampleGraph()},
		{
			name:    "duplicate node",
			graph:   GraphData{Nodes: []GraphNode{{ID: "A"}, {ID: "A"}}},
			wantErr: ErrDuplicateNode,
		},
		{
			name:    "empty node id",
			graph:   GraphData{Nodes: []GraphNode{{ID: ""}}},
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "dangling target",
			graph: GraphData{
				Nodes: []GraphNode{{ID: "A"}},
				Edges: []GraphEdge{{Source: "A", Target: "Z"}},
			},
			wantErr: ErrDanglingEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGraphData_CloneDoesNotShare(t *testing.T) {
	g := sampleGraph()
	g.Nodes[0].Properties = map[string]interface{}{"weight": 1}

	clone := g.Clone()
	clone.Nodes[0].Label = "changed"
	clone.Nodes[0].Properties["weight"] = 2

	assert.Equal(t, "Alpha", g.Nodes[0].Label)
	assert.Equal(t, 1, g.Nodes[0].Properties["weight"])
}

func TestMerge(t *testing.T) {
	base := sampleGraph()
	addition := GraphData{
		Nodes: []GraphNode{{ID: "B", Label: "Beta"}, {ID: "C"}},
		Edges: []GraphEdge{
			{Source: "A", Target: "B", Label: "knows"},
			{Source: "B", Target: "C"},
		},
	}

	merged := Merge(base, addition)

	assert.Equal(t, []string{"A", "B", "C"}, merged.NodeIDs())
	assert.Equal(t, "Beta", merged.Nodes[1].Label)
	assert.Len(t, merged.Edges, 2)
	assert.NoError(t, merged.Validate())
	assert.Len(t, base.Nodes, 2, "base is not modified")
}
