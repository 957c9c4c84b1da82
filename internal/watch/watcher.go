// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a bundle when its sources change.
//
// A Watcher monitors one or more source roots recursively plus a set of
// individual files (the config file, for example). Events are filtered with
// doublestar globs and coalesced over a debounce window, so an editor's
// write-then-rename produces a single rebuild.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/maps"
)

// defaultDebounce applies when Config.Debounce is zero.
const defaultDebounce = 300 * time.Millisecond

var (
	// DefaultPatterns select Lua sources when Config.Patterns is empty.
	DefaultPatterns = []string{"**/*.lua"}

	// defaultIgnores are excluded on top of Config.Ignore.
	defaultIgnores = []string{
		"**/.git/**",
		"**/.luarocks/**",
		"**/lua_modules/**",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.#*",
		"**/.DS_Store",
	}

	// ErrInvalidWatchConfig is the sentinel wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are directories watched recursively. Patterns and Ignore are
		// matched against paths relative to the root holding them.
		Roots []string

		// Files are watched individually; a change to one always triggers.
		Files []string

		// Exclude lists files that never trigger, such as the bundle being
		// written into a watched root.
		Exclude []string

		// Patterns select the files under Roots that trigger. Empty means
		// DefaultPatterns.
		Patterns []string

		// Ignore are extra globs merged with the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event.
		Debounce time.Duration

		// ClearScreen writes an ANSI clear sequence to Stdout before each
		// callback. Callers decide whether Stdout is a terminal.
		ClearScreen bool

		// OnChange receives the sorted absolute paths that changed.
		OnChange func(ctx context.Context, changed []string) error

		Stdout io.Writer
		Logger *log.Logger
	}

	// InvalidWatchConfigError collects every invalid field of a Config.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// Watcher monitors the configured paths. Run may be called once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		roots    []string
		files    map[string]bool
		exclude  map[string]bool
		patterns []string
		ignores  []string
		debounce time.Duration
		stdout   io.Writer
		log      *log.Logger
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid watch config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid watch config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error {
	return ErrInvalidWatchConfig
}

// Validate checks the globs and paths of a Config.
func (c Config) Validate() error {
	var errs []error
	check := func(label string, patterns []string) {
		for _, pat := range patterns {
			if strings.TrimSpace(pat) == "" {
				errs = append(errs, fmt.Errorf("%s pattern must not be empty", label))
				continue
			}
			if !doublestar.ValidatePattern(pat) {
				errs = append(errs, fmt.Errorf("%s pattern %q: %w", label, pat, doublestar.ErrBadPattern))
			}
		}
	}
	check("watch", c.Patterns)
	check("ignore", c.Ignore)
	for _, p := range append(slices.Clone(c.Roots), c.Files...) {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, errors.New("watched path must not be empty"))
		}
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce %s must not be negative", c.Debounce))
	}
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// New validates cfg, creates the fsnotify watcher and registers every
// non-ignored directory under the roots plus the parent of each file.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Roots) == 0 && len(cfg.Files) == 0 {
		return nil, &InvalidWatchConfigError{FieldErrors: []error{errors.New("nothing to watch")}}
	}

	roots, err := normalizeRoots(cfg.Roots)
	if err != nil {
		return nil, err
	}
	files, err := absSet(cfg.Files)
	if err != nil {
		return nil, err
	}
	exclude, err := absSet(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		roots:    roots,
		files:    files,
		exclude:  exclude,
		patterns: cfg.Patterns,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		stdout:   cfg.Stdout,
		log:      cfg.Logger,
	}
	if len(w.patterns) == 0 {
		w.patterns = DefaultPatterns
	}
	if w.debounce == 0 {
		w.debounce = defaultDebounce
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.log == nil {
		w.log = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addPaths(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.log.Warn("close after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Roots returns the normalized watch roots.
func (w *Watcher) Roots() []string {
	return slices.Clone(w.roots)
}

// Run processes events until ctx is cancelled and returns nil then. Fatal
// watcher errors, such as an exhausted inotify limit, are returned. Run does
// not return while an OnChange call is in progress.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		stopped  bool
		running  atomic.Bool
		inflight sync.WaitGroup
	)

	// fire runs on the timer goroutine. Only one callback runs at a time; a
	// busy callback reschedules the pending set instead of dropping it.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.log.Debug("previous rebuild still running, deferring")
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		inflight.Add(1)
		defer inflight.Done()
		defer running.Store(false)

		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := maps.Keys(pending)
		clear(pending)
		mu.Unlock()
		slices.Sort(changed)

		if w.cfg.ClearScreen {
			fmt.Fprint(w.stdout, "\033[2J\033[H")
		}
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.log.Error("rebuild failed", "err", err)
			}
		}
	}

	// A callback that already started finishes before Run returns.
	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.log.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.triggers(evt.Name) {
				continue
			}
			w.log.Debug("change", "op", evt.Op.String(), "path", evt.Name)

			mu.Lock()
			pending[filepath.Clean(evt.Name)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.log.Warn("fsnotify error", "err", err)
		}
	}
}

// triggers reports whether a change to the absolute path should rebuild.
func (w *Watcher) triggers(path string) bool {
	path = filepath.Clean(path)
	if w.exclude[path] {
		return false
	}
	if w.files[path] {
		return true
	}
	rel, ok := w.relToRoot(path)
	if !ok || w.isIgnored(rel) {
		return false
	}
	return matchAny(w.patterns, rel)
}

// relToRoot returns path relative to the first root containing it.
func (w *Watcher) relToRoot(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

func (w *Watcher) addPaths() error {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	for file := range w.files {
		dir := filepath.Dir(file)
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
	}
	return nil
}

// addTree registers root and every non-ignored directory below it.
// Unreadable directories are skipped with a warning.
func (w *Watcher) addTree(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if rel, ok := w.relToRoot(path); ok && w.isIgnoredDir(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", root, walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, ok := w.relToRoot(path)
	if !ok || w.isIgnoredDir(rel) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.log.Warn("watch new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// isIgnoredDir also tries rel with a trailing child so "dir/**" patterns
// prune the directory itself.
func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/x")
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// normalizeRoots makes roots absolute and drops those nested inside another.
func normalizeRoots(roots []string) ([]string, error) {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", r, err)
		}
		abs = append(abs, a)
	}
	slices.Sort(abs)
	abs = slices.Compact(abs)

	out := abs[:0]
	for _, r := range abs {
		nested := false
		for _, kept := range out {
			if strings.HasPrefix(r, kept+string(filepath.Separator)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r)
		}
	}
	return out, nil
}

func absSet(paths []string) (map[string]bool, error) {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", p, err)
		}
		set[a] = true
	}
	return set, nil
}
