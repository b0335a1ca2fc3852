package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

func newCleanCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "clean URL",
		Short: "Remove the partial file and metadata left by an interrupted download",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := utils.FileNameFromURL(args[0])
			removed, err := utils.Clean(dir, name)
			if err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning up temporary files: %v", err))
				os.Exit(1)
			}
			if len(removed) == 0 {
				output.PrintInfo("Nothing to clean for " + name)
				return
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary file(s) for %s", len(removed), name))
		},
	}
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "Directory holding the download artifacts")
	return cmd
}
