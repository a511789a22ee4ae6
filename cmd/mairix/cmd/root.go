// Package cmd wires mairix's cobra CLI (spec §6 CLI surface, §1.4): a
// single root command that runs an index update when given no query
// arguments, or a search when given any.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mchl/mairix/internal/config"
)

// Exit codes (spec §6): 0 success, 1 no-hit search, 2 fatal error.
const (
	exitOK     = 0
	exitNoHits = 1
	exitFatal  = 2
)

var (
	rcFile  string
	verbose bool
	noCheck bool // -Q: skip integrity checks

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mairix [query...]",
	Short:         "Index and search local mail folders",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		cfg, err := config.Load(rcFile)
		if err != nil {
			return fatalErr(err)
		}
		if err := cfg.EnsureHomeDir(); err != nil {
			return fatalErr(fmt.Errorf("create home directory: %w", err))
		}

		if dumpFlag {
			return runDump(cfg)
		}
		if len(args) > 0 {
			return runSearch(cfg, args)
		}
		return runUpdate(cfg)
	},
}

// exitCoder lets RunE report a specific process exit code without cobra
// printing its own error banner (SilenceErrors above handles the banner;
// this just carries the code back to main).
type exitCoder struct {
	code int
	err  error
}

func (e *exitCoder) Error() string { return e.err.Error() }
func (e *exitCoder) Unwrap() error { return e.err }

func fatalErr(err error) error { return &exitCoder{code: exitFatal, err: err} }
func noHits() error            { return &exitCoder{code: exitNoHits, err: errors.New("no matching messages")} }

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	rootCmd.SetContext(ctx)
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	var ec *exitCoder
	if errors.As(err, &ec) {
		if ec.code != exitNoHits {
			fmt.Fprintln(os.Stderr, "mairix:", ec.err)
		}
		return ec.code
	}
	// Flag-parsing errors and the like never reach fatalErr; still a
	// fatal condition by spec §6.
	fmt.Fprintln(os.Stderr, "mairix:", err)
	return exitFatal
}

var (
	dumpFlag bool
)

func init() {
	rootCmd.Flags().StringVarP(&rcFile, "rcfile", "f", "", "config file (default: ~/.mairix/config)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&noCheck, "no-integrity-checks", "Q", false, "skip integrity checks")
	rootCmd.Flags().BoolVarP(&purgeFlag, "purge", "p", false, "purge dead entries during update")
	rootCmd.Flags().BoolVarP(&dumpFlag, "dump", "d", false, "dump database contents to stdout")
	rootCmd.Flags().BoolVarP(&augmentFlag, "augment", "a", false, "augment existing output folder instead of replacing it")
	rootCmd.Flags().BoolVarP(&threadsFlag, "threads", "t", false, "expand hits to whole threads")
	rootCmd.Flags().StringVarP(&mfolderFlag, "mfolder", "o", "", "override the output folder")
	rootCmd.Flags().BoolVarP(&rawFlag, "raw-output", "r", false, "force raw-path output instead of a materialised folder")
	rootCmd.Flags().BoolVarP(&hardlinkFlag, "hardlinks", "l", false, "hard-link instead of symlink maildir/MH output")
}
