package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"thoughtgraph/application/services"
	"thoughtgraph/infrastructure/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand(app *App) *cobra.Command {
	var view viewFlags
	cmd := &cobra.Command{
		Use:   "watch GRAPH_ID FILE",
		Short: "Submit FILE to a graph every time it is saved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			detach, err := openGraph(ctx, client, args[0], view)
			if err != nil {
				return err
			}
			defer detach()

			watcher, err := config.NewFileWatcher(args[1], 0, client.Logger.Named("watch"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			submit := func() {
				raw, err := os.ReadFile(args[1])
				if err != nil {
					fmt.Fprint(out, pterm.Error.Sprintfln("read %s: %v", args[1], err))
					return
				}
				err = client.Sync.SubmitText(ctx, string(raw))
				switch {
				case errors.Is(err, services.ErrSuperseded), errors.Is(err, context.Canceled):
					return
				case err != nil:
					fmt.Fprint(out, pterm.Error.Sprintln(userError(err).Error()))
					return
				}
				if err := printGraph(out, client, view); err != nil {
					client.Logger.Error("Failed to print graph", zap.Error(err))
				}
			}

			submit()
			fmt.Fprint(out, pterm.Info.Sprintfln("Watching %s, press Ctrl+C to stop", args[1]))
			return watcher.Run(ctx, submit)
		},
	}
	view.register(cmd)
	return cmd
}
