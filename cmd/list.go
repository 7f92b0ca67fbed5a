package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the Makefile directives a patch would add",
		Long:  "Parse and filter the patch and show the planned targets without writing anything.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			args, err := planArgsFromConfig()
			if err != nil {
				return err
			}

			return workflow.List(context.Background(), args)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
