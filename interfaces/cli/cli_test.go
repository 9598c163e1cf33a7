package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/renderer"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/layout"
	"thoughtgraph/infrastructure/persistence/memory"
	"thoughtgraph/interfaces/http/rest"
	"thoughtgraph/pkg/auth"
	"thoughtgraph/pkg/observability"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	cfg  *config.Config
	repo *memory.GraphRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pterm.DisableStyling()

	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.SessionFile = filepath.Join(t.TempDir(), "session")

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	})
	require.NoError(t, err)

	repo := memory.NewGraphRepository(zap.NewNop())
	router := rest.NewRouter(repo, validator, observability.NewCollector("cli_test"), rest.RouterConfig{}, zap.NewNop())
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	cfg.APIBaseURL = server.URL
	return &harness{cfg: cfg, repo: repo}
}

// run executes one command line and returns what it printed
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(WithConfig(h.cfg))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// createGraph creates a graph through the CLI and returns its id
func (h *harness) createGraph(t *testing.T, name string) string {
	t.Helper()
	out, err := h.run(t, "create", name)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+name)

	threads, err := h.repo.ListThreads(context.Background(), h.cfg.UserID)
	require.NoError(t, err)
	for _, th := range threads {
		if th.Name == name {
			return th.ID
		}
	}
	t.Fatalf("graph %q was not created", name)
	return ""
}

func TestThreads_EmptyAndListed(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "threads")
	require.NoError(t, err)
	assert.Contains(t, out, "No graphs yet")

	id := h.createGraph(t, "Weather")

	out, err = h.run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Weather")
}

func TestCreate_DuplicateNameFails(t *testing.T) {
	h := newHarness(t)
	h.createGraph(t, "Weather")

	_, err := h.run(t, "create", "Weather")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: Conflict")
}

func TestSubmit_ThenShow(t *testing.T) {
	// Arrange
	h := newHarness(t)
	id := h.createGraph(t, "Weather")

	// Act
	out, err := h.run(t, "submit", id, "rain -> floods", "floods -> damage")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "3 nodes, 2 edges")
	assert.Contains(t, out, "rain")

	out, err = h.run(t, "show", id, "--json")
	require.NoError(t, err)
	var data aggregates.GraphData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.ElementsMatch(t, []string{"rain", "floods", "damage"}, data.NodeIDs())
}

func TestSubmit_FromFile(t *testing.T) {
	h := newHarness(t)
	id := h.createGraph(t, "Notes")
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("idea -> plan\n"), 0o644))

	out, err := h.run(t, "submit", id, "--file", file)

	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes, 1 edges")
}

func TestShow_UnknownGraph(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "show", "does-not-exist")

	require.Error(t, err)
	assert.Equal(t, "Error: Not Found", err.Error())
}

func TestShow_EmptyGraph(t *testing.T) {
	h := newHarness(t)
	id := h.createGraph(t, "Blank")

	out, err := h.run(t, "show", id)

	require.NoError(t, err)
	assert.Contains(t, out, "The graph is empty.")
}

func TestSave_ReplacesGraph(t *testing.T) {
	// Arrange
	h := newHarness(t)
	id := h.createGraph(t, "Weather")
	_, err := h.run(t, "submit", id, "rain -> floods")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "graph.json")
	snapshot := `{"nodes":[{"id":"X"},{"id":"Y"}],"edges":[{"source":"X","target":"Y","label":"then"}]}`
	require.NoError(t, os.WriteFile(file, []byte(snapshot), 0o644))

	// Act
	out, err := h.run(t, "save", id, file)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 2 nodes and 1 edges")
	data, err := h.repo.GetGraph(context.Background(), h.cfg.UserID, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, data.NodeIDs())
}

func TestSave_RejectsInvalidSnapshot(t *testing.T) {
	h := newHarness(t)
	id := h.createGraph(t, "Weather")
	file := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"nodes":[],"edges":[{"source":"A","target":"B"}]}`), 0o644))

	_, err := h.run(t, "save", id, file)

	require.Error(t, err)
	assert.ErrorIs(t, err, aggregates.ErrDanglingEdge)
}

func TestLogin_RequiresSupabase(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "login", "--email", "a@example.com", "--password", "pw")

	assert.ErrorIs(t, err, errNotSupabase)
}

func TestLogout_RemovesSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.cfg.SessionFile, []byte("refresh\n"), 0o600))

	out, err := h.run(t, "logout")

	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")
	_, statErr := os.Stat(h.cfg.SessionFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDrawCanvas(t *testing.T) {
	// Arrange
	engine := layout.NewEngine(zap.NewNop())
	require.NoError(t, engine.Mount(*containerFor(120, 12), renderer.DefaultStylesheet(), []ports.Element{
		{Kind: ports.ElementNode, ID: "A", Label: "alpha"},
		{Kind: ports.ElementNode, ID: "B", Label: "beta"},
		{Kind: ports.ElementEdge, ID: "A_B_", Source: "A", Target: "B"},
	}))
	require.NoError(t, engine.Layout(renderer.DefaultLayoutOptions(), nil))
	engine.Fit(ports.FitOptions{Padding: 40})

	// Act

	canvas := drawCanvas(engine, 120, 12)

	// Assert
	lines := strings.Split(canvas, "\n")
	assert.Len(t, lines, 12)
	assert.Contains(t, canvas, "alpha")
	assert.Contains(t, canvas, "beta")
	assert.Contains(t, canvas, "*")
}

func TestDrawCanvas_ZeroSize(t *testing.T) {
	assert.Empty(t, drawCanvas(layout.NewEngine(zap.NewNop()), 0, 10))
}
