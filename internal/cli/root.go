package cli

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Browser media player",
		Long:  "Serves a browser media viewer for uploaded files, local directories and web URLs",
		// errors are printed by cobra; usage only for bad invocations
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newScanCmd())
	return cmd
}

// Execute runs the command line
func Execute() error {
	return newRootCmd().Execute()
}
