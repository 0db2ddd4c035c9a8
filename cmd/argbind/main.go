// Command argbind tokenizes, parses and resolves command lines against
// parameter sets described in YAML.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/argbind/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds the global flags and streams shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	debug   bool
	logJSON bool
	logFile string
	noColor bool

	logger    *slog.Logger
	logCloser io.Closer
}

// run executes the CLI with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.DiscardHandler),
	}

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
	if err != nil {
		FormatError(stderr, err, ShouldUseColor(stderr, a.noColor))
	}
	return exitCode(err)
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "argbind",
		Short: "Parse command lines and bind them to parameter sets",
		Long: `argbind parses PowerShell-style command lines and binds them to typed
parameter sets.

Arguments that start with a dash must follow "--" so they are not read as
argbind flags:

  argbind resolve --sets sets.yaml -- copy a.txt b.txt -Force`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger, a.logCloser = logging.New(logging.Config{
				Debug:    a.debug,
				JSON:     a.logJSON,
				File:     a.logFile,
				Terminal: a.stderr,
			})
			return nil
		},
	}

	// Add flags
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Write logs to stderr as JSON")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file, rotated")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(a.tokensCmd(), a.parseCmd(), a.resolveCmd(), a.setsCmd())
	return rootCmd
}
