// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/luabundle/luabundle/internal/watch"
)

// prepareFunc loads the configuration, applies the flags and picks the
// entry. Watch mode calls it again when the config file changes.
type prepareFunc func(ctx context.Context) (*session, string, error)

// runWatch builds once, then rebuilds on every change to the sources or the
// config file until ctx is cancelled. Build failures are reported and
// watching continues.
func runWatch(ctx context.Context, app *App, prepare prepareFunc, s *session, entry string) error {
	rebuild := func(ctx context.Context) {
		if err := buildOnce(ctx, app, s, entry, false); err != nil {
			renderError(app.stderr, err, s.verbose, glamourStyle(s.cfg))
		}
	}
	rebuild(ctx)

	w, err := watch.New(watchConfig(s, entry, func(ctx context.Context, changed []string) error {
		s.log.Info("change detected", "files", len(changed), "first", displayPath(changed[0]))
		if s.cfgPath != "" && slices.Contains(changed, s.cfgPath) {
			next, nextEntry, err := prepare(ctx)
			if err != nil {
				renderError(app.stderr, err, s.verbose, glamourStyle(s.cfg))
				return nil
			}
			s, entry = next, nextEntry
			s.log.Info("configuration reloaded")
		}
		rebuild(ctx)
		return nil
	}))
	if err != nil {
		return err
	}
	s.log.Info("watching for changes", "roots", len(w.Roots()))
	return w.Run(ctx)
}

// watchConfig watches the entry's directory, every existing search root and
// the config file. The bundle and source map never trigger a rebuild.
func watchConfig(s *session, entry string, onChange func(context.Context, []string) error) watch.Config {
	roots := []string{filepath.Dir(absPath(entry))}
	for _, p := range s.cfg.Paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			roots = append(roots, p)
		}
	}
	var files []string
	if s.cfgPath != "" {
		files = append(files, s.cfgPath)
	}
	var exclude []string
	for _, p := range []string{s.cfg.Output, s.cfg.SourceMap} {
		if p != "" {
			exclude = append(exclude, p)
		}
	}
	return watch.Config{
		Roots:    roots,
		Files:    files,
		Exclude:  exclude,
		Ignore:   s.cfg.Watch.Ignore,
		Debounce: s.cfg.Watch.Debounce,
		OnChange: onChange,
		Logger:   s.log.WithPrefix("luabundle/watch"),
	}
}
