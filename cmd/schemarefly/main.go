// Command schemarefly is the CLI surface over the contract analyzer core:
// check (contract validation, optionally restricted to a modified closure),
// impact (downstream blast radius for one model), and drift (declared
// contract vs warehouse schema).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/obslog"
)

// Exit codes are part of the stable CLI contract.
const (
	exitOK       = 0
	exitFindings = 1
	exitUsage    = 2
	exitIO       = 3
	exitInternal = 4
)

// exitError carries a specific exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func ioErr(err error) error {
	return &exitError{code: exitIO, err: err}
}

func internalErr(err error) error {
	return &exitError{code: exitInternal, err: err}
}

var (
	flagConfig  string
	flagVerbose bool
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, usageErr("%v", err)
	}
	if os.Getenv("SCHEMAREFLY_REDACT") != "" {
		cfg.Redact = true
	}
	return cfg, nil
}

func main() {
	root := &cobra.Command{
		Use:           "schemarefly",
		Short:         "Static contract analysis for dbt projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := obslog.Init(flagVerbose)
			return err
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the analyzer config file")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	root.AddCommand(newCheckCmd(), newImpactCmd(), newDriftCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitUsage)
	}
}
