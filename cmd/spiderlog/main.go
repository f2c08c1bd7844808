// spiderlog: a keeper's log for a spider collection.
//
// It tracks feedings, molts and documents per spider, derives who is
// hungry, and serves everything to AI assistants over MCP.
//
// Usage:
//
//	spiderlog serve            # Start the MCP server (stdio) and feeding reminders
//	spiderlog status           # Show who needs food
//	spiderlog feed <spider>    # Record a feeding
//	spiderlog molt <spider>    # Record a molt
//	spiderlog remind           # Run one reminder pass
//	spiderlog export [file]    # Write the collection as JSON
//	spiderlog import <file>    # Merge a JSON export
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spiderlog/internal/config"
	"github.com/HendryAvila/spiderlog/internal/logging"
	"github.com/HendryAvila/spiderlog/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

// rootCommand creates the command tree.
func rootCommand() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "spiderlog",
		Short:         "Keeper's log for a spider collection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory holding the collection database")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		serveCommand(&flags),
		statusCommand(&flags),
		eventCommand(&flags, "feed"),
		eventCommand(&flags, "molt"),
		remindCommand(&flags),
		exportCommand(&flags),
		importCommand(&flags),
		versionCommand(),
	)
	return rootCmd
}

// load resolves the configuration with command-line overrides applied.
func (f *globalFlags) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if f.dataDir != "" {
		cfg = cfg.WithDataDir(f.dataDir)
	}
	if f.logLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.ToUpper(f.logLevel))); err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid --log-level %q", f.logLevel)
		}
		cfg.LogLevel = level
	}
	return cfg, logging.New(nil, cfg.LogLevel), nil
}

// open loads the configuration and opens the collection. The caller must
// Close the returned App.
func (f *globalFlags) open(ctx context.Context) (*server.App, error) {
	cfg, logger, err := f.load()
	if err != nil {
		return nil, err
	}
	return server.Open(ctx, cfg, logger)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spiderlog v%s\n", server.Version)
		},
	}
}
