package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kcovmark.dev/pkg/kcovmark/internal/domain"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Annotate Makefiles for a patch and list existing markers",
		Long:  runLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			annotateArgs, err := annotateArgsFromFlags(cmd)
			if err != nil {
				return err
			}

			return workflow.Run(context.Background(), domain.RunArgs{
				AnnotateArgs:  annotateArgs,
				BlacklistFile: viper.GetString(blacklistFileKey),
				Reports:       m.Path(viper.GetString(outputFlagName)),
			})
		},
	}

	configureAnnotateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureAnnotateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP(dryRunFlagName, "n", false, "print the Makefile changes as diffs instead of writing them")
	cmd.Flags().Bool(skipExistingFlagName, false, "do not append a directive that is already present")
}

func annotateArgsFromFlags(cmd *cobra.Command) (domain.AnnotateArgs, error) {
	planArgs, err := planArgsFromConfig()
	if err != nil {
		return domain.AnnotateArgs{}, err
	}

	dryRun, err := cmd.Flags().GetBool(dryRunFlagName)
	if err != nil {
		return domain.AnnotateArgs{}, err
	}

	return domain.AnnotateArgs{
		PlanArgs:     planArgs,
		DryRun:       dryRun,
		SkipExisting: boolSetting(cmd, skipExistingFlagName, skipExistingKey),
	}, nil
}

// boolSetting prefers an explicitly set command flag over configuration.
// Used for flags shared by several commands, which cannot all be bound to
// the same viper key.
func boolSetting(cmd *cobra.Command, flagName, key string) bool {
	if flag := cmd.Flags().Lookup(flagName); flag != nil && flag.Changed {
		value, err := cmd.Flags().GetBool(flagName)
		if err == nil {
			return value
		}
	}

	return viper.GetBool(key)
}
