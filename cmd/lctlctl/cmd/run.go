package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lustrefs/manager/pkg/document"
)

func AddRunCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "run <document.yaml>",
		Short: "Parse, plan, and submit a document for execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			doc, err := document.Parse(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			ctx := context.Background()
			mgr, pool, _, err := wiredManager(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			id, err := mgr.Run(ctx, doc)
			if err != nil {
				return fmt.Errorf("submit %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "command %d submitted\n", id)
			return nil
		},
	}
	root.AddCommand(cmd)
}
