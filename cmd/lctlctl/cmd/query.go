package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func AddQueryCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "query <command-id>",
		Short: "Print a command's current rolled-up state and per-step plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid command id %q: %w", args[0], err)
			}

			ctx := context.Background()
			mgr, pool, _, err := wiredManager(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			plan, state, err := mgr.Query(ctx, id)
			if err != nil {
				return fmt.Errorf("query command %d: %w", id, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "command %d: %s\n", id, state)
			for jobName, graph := range plan {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", jobName)
				for _, node := range graph.Nodes {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s %s (%s)\n", node.ID, node.State, node.Action)
				}
			}
			return nil
		},
	}
	root.AddCommand(cmd)
}
