// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/luabundle/luabundle/internal/config"
	"github.com/luabundle/luabundle/internal/issue"
)

type (
	// App wires the CLI's shared dependencies. Every command handler
	// receives it and writes only through its writers.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// global flags
		verbose    bool
		configPath string
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is the state of one command invocation after the config has
	// been loaded.
	session struct {
		cfg     *config.Config
		cfgPath string
		log     *log.Logger
		verbose bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// start loads the configuration and builds the logger for one command.
func (a *App) start(ctx context.Context) (*session, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, withIssue(err, "load configuration", issue.ConfigLoadFailedId)
	}
	verbose := a.verbose || loaded.Config.UI.Verbose
	logger := newLogger(a.stderr, verbose)
	if loaded.Path != "" {
		logger.Debug("configuration loaded", "path", loaded.Path)
	}
	return &session{
		cfg:     loaded.Config,
		cfgPath: loaded.Path,
		log:     logger,
		verbose: verbose,
	}, nil
}

// newLogger returns the CLI logger: prefix "luabundle", debug level when
// verbose.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: "luabundle",
		Level:  level,
	})
}

// fail reports err on stderr and returns the ExitError a RunE handler
// should return. An issue page linked to err is shown when verbose.
func (a *App) fail(err error, verbose bool, style string) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return err
	}
	renderError(a.stderr, err, verbose, style)
	return &ExitError{Code: 1}
}

// failSession is fail with the verbosity and color scheme of s, which may
// be nil when the configuration did not load.
func (a *App) failSession(s *session, err error) error {
	if s == nil {
		return a.fail(err, a.verbose, "auto")
	}
	return a.fail(err, s.verbose, glamourStyle(s.cfg))
}
