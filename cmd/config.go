package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	"kcovmark.dev/pkg/kcovmark/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "kcovmark"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	rootFlagName           = "root"
	patchFlagName          = "patch"
	outputFlagName         = "output"
	blacklistFileFlagName  = "blacklist-file"
	searchFlagName         = "search"
	denyFlagName           = "deny"
	excludeIncludeFlagName = "exclude-include"
	strictExtFlagName      = "strict-ext"
	strictHeadersFlagName  = "strict-headers"
	dirModeFlagName        = "dir-mode"
	dryRunFlagName         = "dry-run"
	skipExistingFlagName   = "skip-existing"
	logFileFlagName        = "log-file"
	verboseFlagName        = "verbose"

	blacklistFileKey    = "blacklist.file"
	searchBackendKey    = "search.backend"
	searchTimeoutKey    = "search.timeout"
	searchWorkersKey    = "search.workers"
	filterDenyKey       = "filter.deny"
	excludeIncludeKey   = "filter.exclude_include_dir"
	strictExtensionsKey = "filter.strict_extensions"
	strictHeadersKey    = "parse.strict_headers"
	dirModeKey          = "makefile.dir_mode"
	skipExistingKey     = "annotate.skip_existing"

	defaultRoot          = "."
	defaultPatch         = "patch-5.9-rc2-rt1.patch"
	defaultReportsDir    = ".kcovmark-reports"
	defaultBlacklistFile = "blackList"
	defaultSearchBackend = adapter.BackendGrep
	defaultSearchTimeout = 300
	defaultSearchWorkers = 4
	defaultDirMode       = string(domain.DirModeSegments)

	envPrefix = "KCOVMARK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".kcovmark.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(rootFlagName, defaultRoot)
	viper.SetDefault(patchFlagName, defaultPatch)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(blacklistFileKey, defaultBlacklistFile)
	viper.SetDefault(searchBackendKey, defaultSearchBackend)
	viper.SetDefault(searchTimeoutKey, defaultSearchTimeout)
	viper.SetDefault(searchWorkersKey, defaultSearchWorkers)
	viper.SetDefault(filterDenyKey, domain.DefaultDeny)
	viper.SetDefault(excludeIncludeKey, false)
	viper.SetDefault(strictExtensionsKey, false)
	viper.SetDefault(strictHeadersKey, false)
	viper.SetDefault(dirModeKey, defaultDirMode)
	viper.SetDefault(skipExistingKey, false)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
