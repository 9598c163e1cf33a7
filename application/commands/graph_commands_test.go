package commands

import (
	"strings"
	"testing"

	"thoughtgraph/domain/core/aggregates"
	apperrors "thoughtgraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateGraphCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantErr  string
	}{
		{name: "valid", input: "Ideas", wantName: "Ideas"},
		{name: "trimmed", input: "  Ideas  ", wantName: "Ideas"},
		{name: "empty", input: "", wantErr: "name is required"},
		{name: "whitespace only", input: "   ", wantErr: "name is required"},
		{name: "exactly max length", input: strings.Repeat("a", MaxGraphNameLength), wantName: strings.Repeat("a", MaxGraphNameLength)},
		{name: "too long", input: strings.Repeat("a", MaxGraphNameLength+1), wantErr: "name must be at most 100 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewCreateGraphCommand(tt.input)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cmd.Name)
		})
	}
}

func TestNewUpdateGraphCommand(t *testing.T) {
	t.Run("nil collections become empty", func(t *testing.T) {
		cmd, err := NewUpdateGraphCommand("Ideas", aggregates.GraphData{})

		require.NoError(t, err)
		assert.NotNil(t, cmd.Nodes)
		assert.NotNil(t, cmd.Edges)
	})

	t.Run("graph name required", func(t *testing.T) {
		_, err := NewUpdateGraphCommand("", aggregates.EmptyGraphData())
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestNewProcessTextCommand(t *testing.T) {
	_, err := NewProcessTextCommand("Ideas", "A -> B")
	assert.NoError(t, err)

	_, err = NewProcessTextCommand("Ideas", "  \n ")
	assert.True(t, apperrors.IsValidation(err))

	_, err = NewProcessTextCommand("", "A -> B")
	assert.True(t, apperrors.IsValidation(err))
}
