package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit statuses by error category.
const (
	exitFailure = 1
	exitConfig  = 2
	exitCLI     = 3
)

// app carries the resolved configuration and logger into every command.
type app struct {
	configPath  string
	errorFormat string
	noColor     bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	os.Exit(a.report(os.Stderr, err))
}

// report prints err in the style chosen by --error-format and returns the
// exit status for it.
func (a *app) report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	a.setColors()
	style, perr := errors.ParseStyle(a.errorFormat)
	if perr != nil {
		errors.Fprint(w, perr, errors.StyleText)
		style = errors.StyleText
	}
	errors.Fprint(w, errors.FromError(err, "E204"), style)
	return exitCode(err)
}

// setColors disables ANSI colors for --no-color or a non-empty NO_COLOR.
func (a *app) setColors() {
	errors.SetColors(!a.noColor && os.Getenv("NO_COLOR") == "")
}

// exitCode maps an error to the process exit status by its category.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	code := errors.Code(err)
	if code == "" {
		// Cobra's own argument and flag errors.
		return exitCLI
	}
	t, _ := errors.GetTemplate(code)
	switch t.Category {
	case errors.CategoryConfig:
		return exitConfig
	case errors.CategoryCLI:
		return exitCLI
	default:
		return exitFailure
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "propctl",
		Short: "Watch and serve reactive documents",
		Long: `propctl drives reactive props from the command line.

It decodes a stream of JSON or YAML documents into a prop and
prints the paths you ask for whenever they change, serves a prop
to WebSocket clients, or mirrors a document stream to Redis.

Configuration is read from propctl.yaml and PROPCTL_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to "+config.ConfigFileName)
	rootCmd.PersistentFlags().StringVar(&a.errorFormat, "error-format", string(errors.StyleText), "Error output: text, compact or json")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored error output (also NO_COLOR)")

	rootCmd.AddCommand(
		watchCmd(a),
		serveCmd(a),
		publishCmd(a),
		configCmd(a),
		errorsCmd(a),
		versionCmd(),
	)

	return rootCmd
}

// newLogger builds the slog handler selected by log.format and log.level.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
