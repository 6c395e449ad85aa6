// Package main provides the logbook CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the logbook release, set at build time.
var Version = "dev"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "logbook" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "logbook",
		Short: "A local-first personal logbook",
		Long: "Logbook records dated entries with a title, project, tags, a markdown\n" +
			"body and attachments. Every logbook process pointed at the same data\n" +
			"directory shares one logbook and sees the others' changes.",
		Version: Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "storage backend: file, sqlite or memory (default: from config)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newNewCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newProjectsCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newRobotCmd())
	root.AddCommand(newDraftCmd())
	root.AddCommand(newAttachCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newServeCmd())

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "logbook:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitError carries the exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError reports bad input: unknown IDs, invalid fields, unreadable
// import payloads.
func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// sysError reports a failure of the environment: storage, filesystem,
// network.
func sysError(err error) error {
	if err == nil {
		return nil
	}
	var e *exitError
	if errors.As(err, &e) {
		return err
	}
	return &exitError{code: exitSysError, err: err}
}

// exitCode maps an error to its exit code. Errors raised by cobra itself
// (unknown flags, wrong argument counts) are user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitUserError
}
