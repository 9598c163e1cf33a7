package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/infrastructure/di"
	apperrors "thoughtgraph/pkg/errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// displayError shows the single human-readable message of err
type displayError struct{ err error }

func (e displayError) Error() string { return apperrors.UserMessage(e.err) }
func (e displayError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return displayError{err: err}
}

// viewFlags control how a graph is printed
type viewFlags struct {
	width  int
	height int
	asJSON bool
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&v.width, "width", 80, "Drawing width in columns")
	cmd.Flags().IntVar(&v.height, "height", 24, "Drawing height in rows")
	cmd.Flags().BoolVar(&v.asJSON, "json", false, "Print the graph as JSON instead of drawing it")
}

// openGraph attaches the renderer to the store, loads the thread list so
// the graph's name is known, and selects graphID
func openGraph(ctx context.Context, client *di.ClientContainer, graphID string, view viewFlags) (func(), error) {
	client.Renderer.SetContainer(containerFor(view.width, view.height))
	detach := client.Renderer.Attach(client.Store)

	if err := client.Sync.RefreshThreads(ctx); err != nil {
		detach()
		return nil, userError(err)
	}
	if err := client.Sync.SelectThread(ctx, graphID); err != nil {
		detach()
		return nil, userError(err)
	}
	return detach, nil
}

func printGraph(out io.Writer, client *di.ClientContainer, view viewFlags) error {
	data := client.Store.State().Displayed()

	if view.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	if data.IsEmpty() {
		fmt.Fprint(out, pterm.Info.Sprintln("The graph is empty."))
		return nil
	}

	fmt.Fprintln(out, drawCanvas(client.Engine, view.width, view.height))
	fmt.Fprintln(out)

	rows := pterm.TableData{{"SOURCE", "RELATION", "TARGET"}}
	for _, e := range data.Edges {
		relation := e.Label
		if relation == "" {
			relation = e.Type
		}
		rows = append(rows, []string{e.Source, relation, e.Target})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	fmt.Fprintf(out, "%d nodes, %d edges\n", len(data.Nodes), len(data.Edges))
	return nil
}

func newShowCommand(app *App) *cobra.Command {
	var view viewFlags
	cmd := &cobra.Command{
		Use:   "show GRAPH_ID",
		Short: "Fetch a graph and draw it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			detach, err := openGraph(cmd.Context(), client, args[0], view)
			if err != nil {
				return err
			}
			defer detach()
			return printGraph(cmd.OutOrStdout(), client, view)
		},
	}
	view.register(cmd)
	return cmd
}

func newSubmitCommand(app *App) *cobra.Command {
	var (
		view     viewFlags
		fromFile string
	)
	cmd := &cobra.Command{
		Use:   "submit GRAPH_ID [TEXT...]",
		Short: "Send text to a graph and show the result",
		Long: `Send text to the graph service, which extracts concepts and relations and
merges them into the graph. Each TEXT argument is one line. Use --file to
read the text from a file, or --file - for standard input.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], "\n")
			if fromFile != "" {
				raw, err := readInput(cmd, fromFile)
				if err != nil {
					return err
				}
				text = string(raw)
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			detach, err := openGraph(cmd.Context(), client, args[0], view)
			if err != nil {
				return err
			}
			defer detach()

			if err := client.Sync.SubmitText(cmd.Context(), text); err != nil {
				return userError(err)
			}
			return printGraph(cmd.OutOrStdout(), client, view)
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the text from this file (- for stdin)")
	view.register(cmd)
	return cmd
}

func newSaveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save GRAPH_ID FILE",
		Short: "Replace a graph with a JSON snapshot ({\"nodes\":[...],\"edges\":[...]})",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			var data aggregates.GraphData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}
			data = data.Normalize()
			if err := data.Validate(); err != nil {
				return err
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			view := viewFlags{width: 80, height: 24}
			detach, err := openGraph(cmd.Context(), client, args[0], view)
			if err != nil {
				return err
			}
			defer detach()

			client.Store.CommitSnapshot(args[0], data)
			if err := client.Sync.SaveSnapshot(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Saved %d nodes and %d edges", len(data.Nodes), len(data.Edges)))
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("file %s does not exist", name)
	}
	return raw, err
}
