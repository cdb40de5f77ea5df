package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/localmedia/player/internal/embed"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>",
		Short: "Show how a web URL would be embedded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(embed.Classify(args[0]))
		},
	}
}
