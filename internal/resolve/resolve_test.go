// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/luabundle/luabundle/internal/testutil"
)

func newResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestResolve_ExactFileBeforeIndex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"foo/bar.lua":      "return 1",
		"foo/bar/init.lua": "return 2",
		"pkg/init.lua":     "return 3",
	})
	r := newResolver(t, Options{Roots: []string{dir}})

	got, err := r.Resolve("foo.bar", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "foo", "bar.lua"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	got, err = r.Resolve("pkg", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "pkg", "init.lua"); got != want {
		t.Errorf("expected index file %s, got %s", want, got)
	}
}

func TestResolve_RootsInOrder(t *testing.T) {
	t.Parallel()
	first := t.TempDir()
	second := t.TempDir()
	testutil.WriteTree(t, first, map[string]string{"only_first.lua": ""})
	testutil.WriteTree(t, second, map[string]string{"shared.lua": "", "only_second.lua": ""})
	testutil.WriteTree(t, first, map[string]string{"shared/init.lua": ""})

	r := newResolver(t, Options{Roots: []string{first, second}})

	// The first root wins even through its index-file template.
	got, err := r.Resolve("shared", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(first, "shared", "init.lua"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	got, err = r.Resolve("only_second", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(second, "only_second.lua"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := newResolver(t, Options{Roots: []string{dir}})

	_, err := r.Resolve("foo.bar", "main")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.Name != "foo.bar" || nf.From != "main" {
		t.Errorf("unexpected error fields: %+v", nf)
	}
	want := []string{
		filepath.Join(dir, "foo", "bar.lua"),
		filepath.Join(dir, "foo", "bar", "init.lua"),
	}
	if !slices.Equal(nf.Tried, want) {
		t.Errorf("expected tried %v, got %v", want, nf.Tried)
	}
	msg := err.Error()
	if !strings.Contains(msg, `"foo.bar"`) || !strings.Contains(msg, `required by "main"`) {
		t.Errorf("expected message to name both modules, got %q", msg)
	}
}

func TestResolve_DirectoryIsNotAFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(dir, "thing.lua"), 0o755)
	r := newResolver(t, Options{Roots: []string{dir}})

	if _, err := r.Resolve("thing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected directory to be skipped, got %v", err)
	}
}

func TestResolve_CustomSeparatorAndTemplates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"lib/a_b/mod.luau": ""})
	r := newResolver(t, Options{
		Roots:     []string{dir},
		Separator: "_",
		Templates: []string{"lib/?/mod.luau"},
	})

	got, err := r.Resolve("a.b", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "lib", "a_b", "mod.luau"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolve_VerbatimLuaName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"vendor/json.lua": ""})
	r := newResolver(t, Options{Roots: []string{dir}})

	got, err := r.Resolve("vendor/json.lua", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "vendor", "json.lua"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestResolveEntry(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.lua": ""})
	r := newResolver(t, Options{Roots: []string{dir}})

	got, err := r.ResolveEntry(filepath.Join(dir, "main.lua"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %s", got)
	}

	if _, err := r.ResolveEntry(filepath.Join(dir, "missing.lua")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing entry, got %v", err)
	}
}

func TestNew_InvalidTemplate(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Templates: []string{"init.lua"}})
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestNew_DeduplicatesRoots(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := newResolver(t, Options{Roots: []string{dir, dir + string(filepath.Separator), dir}})
	if len(r.Roots()) != 1 {
		t.Errorf("expected one root, got %v", r.Roots())
	}
}
