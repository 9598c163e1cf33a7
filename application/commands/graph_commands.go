package commands

import (
	"strings"

	"thoughtgraph/domain/core/aggregates"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"
)

// MaxGraphNameLength bounds graph names accepted by CreateGraphCommand
const MaxGraphNameLength = 100

// CreateGraphCommand is the body of POST /api/graphs
type CreateGraphCommand struct {
	Name string `json:"name" validate:"required,max=100"`
}

// NewCreateGraphCommand trims the name and validates the command
func NewCreateGraphCommand(name string) (CreateGraphCommand, error) {
	cmd := CreateGraphCommand{Name: strings.TrimSpace(name)}
	return cmd, cmd.Validate()
}

// Validate validates the command
func (c CreateGraphCommand) Validate() error {
	return validate(c)
}

// UpdateGraphCommand is the body of POST /api/graphs/update.
// The snapshot replaces the stored graph wholesale.
type UpdateGraphCommand struct {
	GraphName string                 `json:"graphName" validate:"required"`
	Nodes     []aggregates.GraphNode `json:"nodes"`
	Edges     []aggregates.GraphEdge `json:"edges"`
}

// NewUpdateGraphCommand builds the command from a snapshot
func NewUpdateGraphCommand(graphName string, data aggregates.GraphData) (UpdateGraphCommand, error) {
	data = data.Normalize()
	cmd := UpdateGraphCommand{GraphName: graphName, Nodes: data.Nodes, Edges: data.Edges}
	return cmd, cmd.Validate()
}

// Validate validates the command
func (c UpdateGraphCommand) Validate() error {
	return validate(c)
}

// GraphData returns the snapshot carried by the command
func (c UpdateGraphCommand) GraphData() aggregates.GraphData {
	return aggregates.GraphData{Nodes: c.Nodes, Edges: c.Edges}.Normalize()
}

// ProcessTextCommand is the body of POST /api/process-text
type ProcessTextCommand struct {
	GraphName string `json:"graphName" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

func NewProcessTextCommand(graphName, text string) (ProcessTextCommand, error) {
	cmd := ProcessTextCommand{GraphName: graphName, Text: text}
	if strings.TrimSpace(text) == "" {
		cmd.Text = ""
	}
	return cmd, cmd.Validate()
}

// Validate validates the command
func (c ProcessTextCommand) Validate() error {
	return validate(c)
}

func validate(cmd interface{}) error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}
