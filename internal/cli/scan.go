package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/localmedia/player/internal/source"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>",
		Short: "List the playable files in a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	local, err := source.NewLocal(args[:1])
	if err != nil {
		return err
	}

	entries, err := local.Scan(args[0])
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No playable files found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Name, e.Category, e.Size)
	}
	return tw.Flush()
}
