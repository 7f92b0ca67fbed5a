// Package cmd provides the root command and CLI setup for kcovmark.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	"kcovmark.dev/pkg/kcovmark/internal/controller"
	"kcovmark.dev/pkg/kcovmark/internal/domain"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var searchAdapter adapter.SearchAdapter
var annotator domain.Annotator
var reconciler domain.Reconciler
var workflow domain.Workflow
var ui controller.UI

var (
	rootFlag           string
	patchFlag          string
	reportsOutputDir   string
	blacklistFileFlag  string
	searchBackendFlag  string
	denyPatterns       []string
	excludeIncludeFlag bool
	strictExtFlag      bool
	strictHeadersFlag  bool
	dirModeFlag        string
	logFileFlag        string
	verboseFlag        bool
)

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewReportStore()
	searchAdapter = configuredSearchAdapter{}
	annotator = domain.NewAnnotator(fsAdapter)
	reconciler = domain.NewReconciler(fsAdapter, searchAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		ui,
		annotator,
		reconciler,
	)
}

const rootLongDescription = `kcovmark enables KCOV coverage instrumentation for the C files a kernel
patch touches.

It reads the "diff --git a/<path> b/<path>" headers of the patch, keeps C
sources outside the deny list, appends "KCOV_INSTRUMENT_<name>.o := y" to
the Makefile next to each of them, and then lists the KCOV_INSTRUMENT
assignments already present in the tree.`

const runLongDescription = `Run the whole pipeline: parse the patch, annotate the Makefiles, search the
tree for existing KCOV_INSTRUMENT assignments and save a report.

Makefiles are appended to, never rewritten. Running twice appends the
directives twice unless --skip-existing is set.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

// newRootCmd returns a fully configured root command without subcommands.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "kcovmark",
		Short:        "Mark patched kernel sources for KCOV instrumentation",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVarP(&rootFlag, rootFlagName, "C", viper.GetString(rootFlagName), "root of the kernel source tree")
	bindFlagToConfig(flags.Lookup(rootFlagName), rootFlagName)

	flags.StringVarP(&patchFlag, patchFlagName, "p", viper.GetString(patchFlagName), "patch file, relative to the root unless absolute")
	bindFlagToConfig(flags.Lookup(patchFlagName), patchFlagName)

	flags.StringVarP(&reportsOutputDir, outputFlagName, "o", viper.GetString(outputFlagName), "output directory for run reports")
	bindFlagToConfig(flags.Lookup(outputFlagName), outputFlagName)

	flags.StringVar(&blacklistFileFlag, blacklistFileFlagName, viper.GetString(blacklistFileKey), "file receiving the raw search output, relative to the root")
	bindFlagToConfig(flags.Lookup(blacklistFileFlagName), blacklistFileKey)

	flags.StringVar(&searchBackendFlag, searchFlagName, viper.GetString(searchBackendKey), "search backend: grep or native")
	bindFlagToConfig(flags.Lookup(searchFlagName), searchBackendKey)

	flags.StringArrayVarP(&denyPatterns, denyFlagName, "x", viper.GetStringSlice(filterDenyKey), "drop paths containing this substring (can be repeated; replaces the defaults)")
	bindFlagToConfig(flags.Lookup(denyFlagName), filterDenyKey)

	flags.BoolVar(&excludeIncludeFlag, excludeIncludeFlagName, viper.GetBool(excludeIncludeKey), "also drop paths under include/")
	bindFlagToConfig(flags.Lookup(excludeIncludeFlagName), excludeIncludeKey)

	flags.BoolVar(&strictExtFlag, strictExtFlagName, viper.GetBool(strictExtensionsKey), "require paths to end in .c or .h")
	bindFlagToConfig(flags.Lookup(strictExtFlagName), strictExtensionsKey)

	flags.BoolVar(&strictHeadersFlag, strictHeadersFlagName, viper.GetBool(strictHeadersKey), `only parse lines starting with "diff --git "`)
	bindFlagToConfig(flags.Lookup(strictHeadersFlagName), strictHeadersKey)

	flags.StringVar(&dirModeFlag, dirModeFlagName, viper.GetString(dirModeKey), "Makefile directory derivation: segments or legacy")
	bindFlagToConfig(flags.Lookup(dirModeFlagName), dirModeKey)

	flags.StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func planArgsFromConfig() (domain.PlanArgs, error) {
	dirMode, err := domain.ParseDirMode(viper.GetString(dirModeKey))
	if err != nil {
		return domain.PlanArgs{}, err
	}

	return domain.PlanArgs{
		Root:  m.Path(viper.GetString(rootFlagName)),
		Patch: m.Path(viper.GetString(patchFlagName)),
		Parse: domain.ParseOptions{
			StrictHeaders: viper.GetBool(strictHeadersKey),
		},
		Filter: domain.FilterOptions{
			Deny:              viper.GetStringSlice(filterDenyKey),
			ExcludeIncludeDir: viper.GetBool(excludeIncludeKey),
			StrictExtensions:  viper.GetBool(strictExtensionsKey),
		},
		DirMode: dirMode,
	}, nil
}

// configuredSearchAdapter resolves the backend from configuration on every
// search so flags parsed after init take effect.
type configuredSearchAdapter struct{}

func (configuredSearchAdapter) Search(ctx context.Context, req adapter.SearchRequest, out io.Writer) error {
	backend, err := adapter.NewSearchAdapter(viper.GetString(searchBackendKey), viper.GetInt(searchWorkersKey))
	if err != nil {
		return err
	}

	if timeout := viper.GetInt(searchTimeoutKey); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	return backend.Search(ctx, req, out)
}
