package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// annotateCmd represents the annotate command.
var annotateCmd = newAnnotateCmd()

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Append KCOV_INSTRUMENT directives for the patch's sources",
		Long: `Parse the patch, filter its C sources and append one
"KCOV_INSTRUMENT_<name>.o := y" line per source to the Makefile in the
source's directory. Prints each source and Makefile path as it goes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := annotateArgsFromFlags(cmd)
			if err != nil {
				return err
			}

			return workflow.Annotate(context.Background(), args)
		},
	}

	configureAnnotateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(annotateCmd)
}
