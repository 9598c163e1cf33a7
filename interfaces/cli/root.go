package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the thoughtgraph command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	app := newApp(opts...)

	root := &cobra.Command{
		Use:   "thoughtgraph",
		Short: "Turn free text into a concept graph",
		Long: `thoughtgraph talks to a graph service that extracts concepts and relations
from text, keeps the resulting graph per user and lays it out for display.

Available commands:
  threads  - List your graphs
  create   - Create an empty graph
  show     - Fetch a graph and draw it
  submit   - Send text to a graph
  save     - Replace a graph with a JSON snapshot
  watch    - Re-submit a text file whenever it changes
  login    - Sign in with the identity provider
  logout   - Forget the stored session
  serve    - Run the in-memory reference backend

Examples:
  thoughtgraph create "Weather"
  thoughtgraph submit <graph-id> "rain -> floods"
  thoughtgraph show <graph-id> --width 100 --height 30`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "YAML config file (default $THOUGHTGRAPH_CONFIG)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&app.traceFile, "trace", "", "Write OpenTelemetry spans to this file")

	root.AddCommand(
		newThreadsCommand(app),
		newCreateCommand(app),
		newShowCommand(app),
		newSubmitCommand(app),
		newSaveCommand(app),
		newWatchCommand(app),
		newLoginCommand(app),
		newLogoutCommand(app),
		newServeCommand(app),
	)
	return root
}
