package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kcovmark.dev/pkg/kcovmark/internal/domain"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// blacklistCmd represents the blacklist command.
var blacklistCmd = newBlacklistCmd()

func newBlacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "List the KCOV_INSTRUMENT assignments found in the tree",
		Long: `Search the tree for KCOV_INSTRUMENT, store the raw hits in the blacklist
file and print the source path behind every assignment.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return workflow.Blacklist(context.Background(), domain.BlacklistArgs{
				Root:          m.Path(viper.GetString(rootFlagName)),
				BlacklistFile: viper.GetString(blacklistFileKey),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(blacklistCmd)
}
