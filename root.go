package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagSource     string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

const logFilePermissions = 0o600

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	Source     string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries what every subcommand needs: flags, resolved config,
// and the logger built from both.
type CLIContext struct {
	Flags    CLIFlags
	Resolved *config.Resolved
	Holder   *config.Holder
	Logger   *slog.Logger

	logCloser io.Closer
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext installed by the root pre-run. It
// panics when called outside a command, which is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "iptv-sync",
		Short:   "IPTV catalog sync client",
		Long:    "Mirror live, movie, and series catalogs from Xtream-style panels into a local SQLite store.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
			if ok && cc.logCloser != nil {
				return cc.logCloser.Close()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagSource, "source", "", "source name (overrides active_source)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newInvalidateCmd())
	cmd.AddCommand(newClearSourceCmd())
	cmd.AddCommand(newFavoriteCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newLoginCmd())

	return cmd
}

// loadConfig resolves the effective configuration and installs a CLIContext
// on the command.
func loadConfig(cmd *cobra.Command) error {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		Source:     flagSource,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		Source:     flags.Source,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closer, err := buildLogger(resolved.Config.Logging, flags)
	if err != nil {
		return err
	}

	cc := &CLIContext{
		Flags:     flags,
		Resolved:  resolved,
		Holder:    config.NewHolder(resolved.Config, resolved.Path),
		Logger:    logger,
		logCloser: closer,
	}

	logger.Debug("config resolved",
		slog.String("path", resolved.Path),
		slog.String("source_override", resolved.SourceOverride),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates the slog.Logger for this invocation. The config file
// sets the baseline level; --verbose and --quiet override it. Output goes to
// log_file when set, else stderr. Format "auto" is text on a terminal and
// JSON otherwise.
func buildLogger(lc config.LoggingConfig, flags CLIFlags) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLogLevel(lc.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	var (
		out    = os.Stderr
		closer io.Closer
	)

	if lc.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(lc.LogFile), dataDirPermissions); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}

		f, err := os.OpenFile(lc.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}

		out = f
		closer = f
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSONLogs(lc.LogFormat, out) {
		return slog.New(slog.NewJSONHandler(out, opts)), closer, nil
	}

	return slog.New(slog.NewTextHandler(out, opts)), closer, nil
}

func useJSONLogs(format string, out *os.File) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !isTerminal(out)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
