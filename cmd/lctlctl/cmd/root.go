// Package cmd is lctlctl's cobra command tree, following kubexm's
// cmd/kubexm/cmd/root.go pattern: a package-level rootCmd, global flags
// bound in init(), an Execute() entry point, and one file per
// subcommand wiring an AddXCommand(rootCmd) function.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lustrefs/manager/pkg/logger"
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "lctlctl",
	Short: "Operate a Lustre control-plane manager during development",
	Long: `lctlctl is a thin client over pkg/api.Manager: it submits
documents, queries a command's persisted plan, and requests cancellation
of a command, wiring its own copy of the manager's dependencies rather
than calling out to a running managerd. Cancellation reaches only
commands started by the same process, so cancel reports a command
submitted by managerd or by another lctlctl invocation as not running.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := logger.DefaultOptions()
		if verboseFlag {
			opts.ConsoleLevel = logger.DebugLevel
		}
		logger.Init(opts)
		return nil
	},
}

// Execute runs the command tree. main calls this and exits non-zero on error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to manager config YAML")

	AddRunCommand(rootCmd)
	AddQueryCommand(rootCmd)
	AddCancelCommand(rootCmd)
	AddWatchCommand(rootCmd)
}
