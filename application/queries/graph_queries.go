package queries

import (
	"errors"
	"strings"
)

// GetGraphQuery requests the snapshot of one graph
type GetGraphQuery struct {
	UserID  string `json:"user_id,omitempty"`
	GraphID string `json:"graph_id"`
}

// Validate validates the query
func (q GetGraphQuery) Validate() error {
	if strings.TrimSpace(q.GraphID) == "" {
		return errors.New("graph ID is required")
	}
	return nil
}

// ListThreadsQuery requests the graphs owned by a user
type ListThreadsQuery struct {
	UserID string `json:"user_id"`
}

// Validate validates the query
func (q ListThreadsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}
