package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func AddCancelCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "cancel <command-id>",
		Short: "Cancel a running command",
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

			if err := mgr.Cancel(ctx, id); err != nil {
				return fmt.Errorf("cancel command %d: %w", id, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "command %d cancelled\n", id)
			return nil
		},
	}
	root.AddCommand(cmd)
}
