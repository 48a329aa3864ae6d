// Package cli is the imgclass command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"imgclass/internal/apiclient"
	"imgclass/internal/config"
	"imgclass/internal/logging"
	"imgclass/internal/session"
)

// Exit codes returned by Main.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error { return usageError{fmt.Errorf(format, a...)} }

// errRendered marks a failure the session has already shown to the user.
var errRendered = errors.New("failure rendered")

// app carries what every command needs once flags and config are resolved.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath   string
	baseURL      string
	logLevel     string
	pollInterval time.Duration

	cfg config.Config
	log zerolog.Logger
}

// load resolves the configuration: file, then environment, then flags.
func (a *app) load(cmd *cobra.Command) error {
	var cfg config.Config
	if a.configPath != "" {
		c, err := config.Load(a.configPath)
		if err != nil {
			return usagef("load config: %w", err)
		}
		cfg = c
	}
	cfg = cfg.ApplyEnv().WithDefaults()
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("poll-interval") {
		if a.pollInterval <= 0 {
			return usagef("--poll-interval must be positive")
		}
		cfg.PollInterval = config.Duration(a.pollInterval)
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat, a.errOut)
	return nil
}

func (a *app) client() (*apiclient.Client, error) {
	var ttl time.Duration
	if a.cfg.ImageCacheTTL != nil {
		ttl = a.cfg.ImageCacheTTL.Std()
	}
	c, err := apiclient.New(apiclient.Config{
		BaseURL:         a.cfg.BaseURL,
		Timeout:         a.cfg.Timeout.Std(),
		RetrainDataPath: a.cfg.RetrainDataPath,
		ImageCacheTTL:   ttl,
		Logger:          a.log,
	})
	if err != nil {
		return nil, usageError{err}
	}
	return c, nil
}

func (a *app) newSession(view session.View) (*session.Session, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return session.New(c, session.Options{
		View:          view,
		Events:        session.LogPublisher{Log: a.log},
		Logger:        a.log,
		PollInterval:  a.cfg.PollInterval.Std(),
		PreviewMaxDim: a.cfg.PreviewMaxDim,
	}), nil
}

// Execute runs the command tree with explicit streams and returns an exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	root := buildRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	if len(args) == 0 {
		root.SetOut(errOut)
		_ = root.Usage()
		return ExitUsage
	}
	return exitCode(root.ExecuteContext(ctx), errOut)
}

func exitCode(err error, w io.Writer) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, errRendered) {
		return ExitFailure
	}
	fmt.Fprintf(w, "error: %v\n", err)
	if isUsage(err) {
		fmt.Fprintln(w, "Run 'imgclass --help' for usage.")
		return ExitUsage
	}
	return ExitFailure
}

func isUsage(err error) bool {
	var ue usageError
	if errors.As(err, &ue) {
		return true
	}
	// cobra reports unknown subcommands as plain errors
	return strings.HasPrefix(err.Error(), "unknown command")
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// SIGINT and SIGTERM cancel the running command.
func MainWithArgs(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Execute(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// Main returns an exit code for use by cmd/imgclass.
func Main() int { return MainWithArgs(os.Args[1:]) }
