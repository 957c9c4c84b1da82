// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct tags and config_schema.cue in step; a field
// present on one side only would be silently dropped or rejected at load time.

// cueFields returns the regular field names of a CUE definition.
func cueFields(t *testing.T, def string) map[string]bool {
	t.Helper()
	schema := cuecontext.New().CompileBytes(configSchema)
	if err := schema.Err(); err != nil {
		t.Fatalf("failed to compile CUE schema: %v", err)
	}
	val := schema.LookupPath(cue.ParsePath(def))
	if err := val.Err(); err != nil {
		t.Fatalf("failed to lookup %s: %v", def, err)
	}

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	fields := make(map[string]bool)
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = true
	}
	return fields
}

// mapstructureTags returns the mapstructure names of a struct's fields.
func mapstructureTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()
	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}
	fields := make(map[string]bool)
	for i := range typ.NumField() {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("mapstructure"), ",")
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}

func assertFieldsSync(t *testing.T, def string, typ reflect.Type) {
	t.Helper()
	cueSide := cueFields(t, def)
	goSide := mapstructureTags(t, typ)
	for f := range cueSide {
		if !goSide[f] {
			t.Errorf("[%s] CUE field %q has no Go field", def, f)
		}
	}
	for f := range goSide {
		if !cueSide[f] {
			t.Errorf("[%s] Go field %q is missing from the CUE schema", def, f)
		}
	}
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()
	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#IdentifiersConfig", reflect.TypeFor[IdentifiersConfig]()},
		{"#WatchConfig", reflect.TypeFor[WatchConfig]()},
		{"#UIConfig", reflect.TypeFor[UIConfig]()},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()
			assertFieldsSync(t, tt.def, tt.typ)
		})
	}
}
