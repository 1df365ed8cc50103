package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	c := &cli{}
	root := c.rootCmd()
	if err := root.Execute(); err != nil {
		errors.Print(os.Stderr, err, useColor(c.noColor, os.Stderr))
		os.Exit(1)
	}
}

// useColor reports whether errors written to f should carry ANSI colors.
func useColor(disabled bool, f *os.File) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pulse",
		Short: "A synchronous reactive signal runtime",
		Long: `Pulse keeps a keyed list of items in sync with everything derived
from it: rendered HTML, live browsers, published snapshots and metrics.

  • serve    run the live board over HTTP and WebSocket
  • render   render the board once to a directory, bucket, Redis or stdout
  • demo     walk through signals, aggregators and keyed lists
  • init     write a starter pulse.yaml and items.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Config file (default: pulse.json, pulse.yaml or pulse.toml in the project root)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format: text, json")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored error output")

	root.AddCommand(
		c.serveCmd(),
		c.renderCmd(),
		c.demoCmd(),
		c.initCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and installs the
// default logger.
func (c *cli) setup(stderr io.Writer) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = newLogger(stderr, cfg.Log.Format, cfg.LogLevel())
	slog.SetDefault(c.logger)
	if path := cfg.Path(); path != "" {
		c.logger.Debug("loaded config", "path", path)
	}
	return nil
}

// loadConfig reads --config, or the nearest project config, or defaults.
func (c *cli) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.LoadFile(c.configPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return config.New(), nil
	}
	return config.Load(root)
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// relPath shortens path for display when it is under the working directory.
func relPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return path
}
