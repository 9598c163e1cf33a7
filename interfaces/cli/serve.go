package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thoughtgraph/infrastructure/di"
	"thoughtgraph/interfaces/http/rest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory reference backend",
		Long: `Run a reference implementation of the graph service API. Graphs live in
memory and text is processed by the local arrow parser ("A -> B" per line),
so this is for development and testing only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				app.cfg.ServerAddress = addr
			}
			container, err := di.InitializeServer(app.cfg)
			if err != nil {
				return err
			}
			defer container.Logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tp, err := di.StartTracing(ctx, app.cfg, "thoughtgraph-api")
			if err != nil {
				return err
			}
			if tp != nil {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = tp.Shutdown(shutdownCtx)
				}()
			}

			container.Logger.Info("Reference backend configured",
				zap.String("environment", app.cfg.Environment),
				zap.Bool("metrics", app.cfg.EnableMetrics),
				zap.Bool("tracing", tp != nil),
			)
			srv := rest.NewServer(app.cfg.ServerAddress, container.Router.Setup())
			return rest.Serve(ctx, srv, container.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
