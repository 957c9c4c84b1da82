// SPDX-License-Identifier: MPL-2.0

package luasyntax

import (
	"fmt"
	"strings"
)

// Quote returns s as a double-quoted Lua string literal that is valid in
// every supported dialect. Control bytes use three-digit decimal escapes so a
// following digit cannot extend them; other bytes are kept as is.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := range len(s) {
		switch c := s[i]; c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03d`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// ReadString decodes the Lua string literal at the start of s, after
// optional whitespace, and returns its value and the number of bytes
// consumed. Any literal form is accepted, long brackets included.
func ReadString(s string) (value string, n int, err error) {
	lx := newLexer([]byte(s), DefaultVersion)
	tok, err := lx.next()
	if err != nil {
		return "", 0, err
	}
	if tok.Kind != String {
		return "", 0, lx.errorf(tok.Pos, "string expected near '%s'", tok.near())
	}
	return tok.Value, lx.off, nil
}
