package cmd

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lustrefs/manager/pkg/commandplan"
	"github.com/lustrefs/manager/pkg/progress"
)

func AddWatchCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "watch <command-id>",
		Short: "Render a command's live progress as a job/step tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid command id %q: %w", args[0], err)
			}

			ctx := context.Background()
			mgr, pool, cfg, err := wiredManager(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			model := progress.NewModel(id, cfg.PollInterval, func() (commandplan.Plan, commandplan.State, error) {
				return mgr.Query(ctx, id)
			})

			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
	root.AddCommand(cmd)
}
