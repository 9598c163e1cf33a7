package cli

import (
	"fmt"

	"thoughtgraph/domain/core/entities"
	"thoughtgraph/pkg/utils"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newThreadsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "threads",
		Aliases: []string{"ls", "list"},
		Short:   "List your graphs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Sync.RefreshThreads(cmd.Context()); err != nil {
				return userError(err)
			}
			return printThreads(cmd, client.Store.State().Threads)
		},
	}
}

func newCreateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			thread, err := client.Sync.CreateGraph(cmd.Context(), args[0])
			if err != nil {
				return userError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Created %s (%s)", thread.DisplayName(), thread.ID))
			return nil
		},
	}
}

func printThreads(cmd *cobra.Command, threads []entities.Thread) error {
	out := cmd.OutOrStdout()
	if len(threads) == 0 {
		fmt.Fprint(out, pterm.Info.Sprintln("No graphs yet. Create one with 'thoughtgraph create NAME'."))
		return nil
	}

	data := pterm.TableData{{"ID", "NAME", "CREATED"}}
	for _, t := range threads {
		created := t.CreatedAt
		if ts, err := utils.ParseRFC3339(created); err == nil {
			created = ts.Local().Format("2006-01-02 15:04")
		}
		data = append(data, []string{t.ID, t.DisplayName(), created})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)
	return nil
}
