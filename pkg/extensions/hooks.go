package extensions

import (
	"context"
	"fmt"
	"sync"
)

// HookPoint represents a point in the application where hooks can be registered
type HookPoint string

const (
	// Graph fetch hooks
	HookBeforeGraphFetch HookPoint = "before_graph_fetch"
	HookAfterGraphFetch  HookPoint = "after_graph_fetch"
	HookGraphFetchFailed HookPoint = "graph_fetch_failed"

	// Text submission hooks
	HookBeforeTextSubmit HookPoint = "before_text_submit"
	HookAfterTextSubmit  HookPoint = "after_text_submit"

	// Graph lifecycle hooks
	HookGraphCreated  HookPoint = "graph_created"
	HookSnapshotSaved HookPoint = "snapshot_saved"
)

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data HookData) error

// HookData is passed to hooks
type HookData struct {
	Operation string                 `json:"operation"`
	GraphID   string                 `json:"graph_id,omitempty"`
	GraphName string                 `json:"graph_name,omitempty"`
	NodeCount int                    `json:"node_count,omitempty"`
	EdgeCount int                    `json:"edge_count,omitempty"`
	Err       error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
	wg    sync.WaitGroup
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute runs the hooks of a point in registration order and stops at
// the first error.
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data HookData) error {
	for i, hook := range m.snapshot(point) {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}
	return nil
}

// ExecuteAsync runs the hooks of a point in the background. Errors are
// ignored; Wait blocks until they have finished.
func (m *HookManager) ExecuteAsync(ctx context.Context, point HookPoint, data HookData) {
	for _, hook := range m.snapshot(point) {
		m.wg.Add(1)
		go func(h Hook) {
			defer m.wg.Done()
			_ = h(ctx, data)
		}(hook)
	}
}

// Wait blocks until every hook started by ExecuteAsync has returned
func (m *HookManager) Wait() {
	m.wg.Wait()
}

func (m *HookManager) snapshot(point HookPoint) []Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Hook(nil), m.hooks[point]...)
}
