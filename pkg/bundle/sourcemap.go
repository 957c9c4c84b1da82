// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type (
	// SourceMap records where each module's source lines sit in the bundle.
	// It is stored as TOML next to the bundle (see Marshal).
	SourceMap struct {
		// Bundle is the bundle file name, when known.
		Bundle string `toml:"bundle,omitempty"`
		// Lines is the total line count of the bundle.
		Lines   int              `toml:"lines"`
		Modules []SourceMapEntry `toml:"module"`
	}

	// SourceMapEntry locates one module in the bundle.
	SourceMapEntry struct {
		ID   string `toml:"id"`
		Path string `toml:"path"`
		// Start is the bundle line holding the module's first source line.
		Start int `toml:"start"`
		// Lines is the module's line count.
		Lines int `toml:"lines"`
	}

	// Location is an original source position.
	Location struct {
		Module string
		Path   string
		Line   int
	}
)

// Locate maps a 1-based bundle line to the module line it came from. Lines in
// the shim or wrapper headers have no original location.
func (s *SourceMap) Locate(line int) (Location, bool) {
	// Modules are stored in bundle order.
	i := sort.Search(len(s.Modules), func(i int) bool {
		return s.Modules[i].Start+s.Modules[i].Lines > line
	})
	if i == len(s.Modules) {
		return Location{}, false
	}
	e := s.Modules[i]
	if line < e.Start {
		return Location{}, false
	}
	return Location{Module: e.ID, Path: e.Path, Line: line - e.Start + 1}, true
}

// Rewrite replaces "chunk:N:" positions in msg with the original module
// positions. Positions outside module bodies are left alone.
func (s *SourceMap) Rewrite(msg, chunk string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(chunk) + `:(\d+):`)
	return re.ReplaceAllStringFunc(msg, func(m string) string {
		n, err := strconv.Atoi(re.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		loc, ok := s.Locate(n)
		if !ok {
			return m
		}
		return loc.String() + ":"
	})
}

// Marshal encodes the source map as TOML.
func (s *SourceMap) Marshal() ([]byte, error) {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode source map: %w", err)
	}
	return data, nil
}

// ParseSourceMap decodes a TOML source map.
func ParseSourceMap(data []byte) (*SourceMap, error) {
	var s SourceMap
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}
	sort.SliceStable(s.Modules, func(i, j int) bool {
		return s.Modules[i].Start < s.Modules[j].Start
	})
	return &s, nil
}

// String formats the location as path:line.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}
