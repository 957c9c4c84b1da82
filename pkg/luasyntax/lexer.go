// SPDX-License-Identifier: MPL-2.0

package luasyntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrSyntax is the sentinel wrapped by every SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports malformed Lua source at a position.
type SyntaxError struct {
	Pos     Pos
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

var (
	// jitSuffixes are the LuaJIT numeral suffixes for 64-bit integers and
	// imaginary numbers.
	jitSuffixes = []string{"ULL", "ull", "LL", "ll", "i", "I"}

	simpleEscapes = map[byte]byte{
		'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r',
		't': '\t', 'v': '\v', '\\': '\\', '"': '"', '\'': '\'',
	}
)

// lexer turns source bytes into tokens. It keeps the byte offset together with
// the current line and column so every token carries its start position.
type lexer struct {
	src     []byte
	off     int
	line    int
	col     int
	version Version
}

func newLexer(src []byte, version Version) *lexer {
	lx := &lexer{src: src, line: 1, col: 1, version: version}
	lx.skipShebang()
	return lx
}

func (lx *lexer) errorf(pos Pos, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) pos() Pos { return Pos{Line: lx.line, Column: lx.col} }

func (lx *lexer) peekByte(n int) byte {
	if lx.off+n < len(lx.src) {
		return lx.src[lx.off+n]
	}
	return 0
}

func (lx *lexer) atEOF() bool { return lx.off >= len(lx.src) }

// advance consumes one byte that is not a line break.
func (lx *lexer) advance() {
	lx.off++
	lx.col++
}

func isNewline(c byte) bool { return c == '\n' || c == '\r' }

// newline consumes a line break. "\r\n" and "\n\r" count as one break.
func (lx *lexer) newline() {
	first := lx.src[lx.off]
	lx.off++
	if !lx.atEOF() && isNewline(lx.src[lx.off]) && lx.src[lx.off] != first {
		lx.off++
	}
	lx.line++
	lx.col = 1
}

// skipShebang ignores a first line starting with '#', the way lua.c does when
// loading a file.
func (lx *lexer) skipShebang() {
	if len(lx.src) == 0 || lx.src[0] != '#' {
		return
	}
	for !lx.atEOF() && !isNewline(lx.src[lx.off]) {
		lx.advance()
	}
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f'
}

// next scans the next token, skipping whitespace and comments.
func (lx *lexer) next() (Token, error) {
	for {
		if lx.atEOF() {
			return Token{Kind: EOF, Pos: lx.pos()}, nil
		}
		c := lx.src[lx.off]
		switch {
		case isNewline(c):
			lx.newline()
		case isSpace(c):
			lx.advance()
		case c == '-' && lx.peekByte(1) == '-':
			if err := lx.skipComment(); err != nil {
				return Token{}, err
			}
		default:
			return lx.scan()
		}
	}
}

func (lx *lexer) skipComment() error {
	start := lx.pos()
	lx.advance()
	lx.advance()
	if !lx.atEOF() && lx.src[lx.off] == '[' {
		if level, ok := lx.longBracketLevel(); ok {
			if _, err := lx.readLongString(start, level); err != nil {
				return lx.errorf(start, "unfinished long comment")
			}
			return nil
		}
	}
	for !lx.atEOF() && !isNewline(lx.src[lx.off]) {
		lx.advance()
	}
	return nil
}

// longBracketLevel checks for "[" "="* "[" at the current offset without
// consuming it and returns the number of '=' signs.
func (lx *lexer) longBracketLevel() (int, bool) {
	i := lx.off + 1
	level := 0
	for i < len(lx.src) && lx.src[i] == '=' {
		level++
		i++
	}
	if i < len(lx.src) && lx.src[i] == '[' {
		return level, true
	}
	return 0, false
}

// readLongString consumes a long bracket of the given level starting at the
// opening '[' and returns its contents. A line break directly after the
// opening bracket is dropped and every line break is normalized to "\n".
func (lx *lexer) readLongString(start Pos, level int) (string, error) {
	for range level + 2 {
		lx.advance()
	}
	if !lx.atEOF() && isNewline(lx.src[lx.off]) {
		lx.newline()
	}
	var sb strings.Builder
	for {
		if lx.atEOF() {
			return "", lx.errorf(start, "unfinished long string")
		}
		c := lx.src[lx.off]
		switch {
		case c == ']' && lx.closesLongBracket(level):
			for range level + 2 {
				lx.advance()
			}
			return sb.String(), nil
		case isNewline(c):
			lx.newline()
			sb.WriteByte('\n')
		default:
			sb.WriteByte(c)
			lx.advance()
		}
	}
}

func (lx *lexer) closesLongBracket(level int) bool {
	i := lx.off + 1
	for range level {
		if i >= len(lx.src) || lx.src[i] != '=' {
			return false
		}
		i++
	}
	return i < len(lx.src) && lx.src[i] == ']'
}

func (lx *lexer) scan() (Token, error) {
	start := lx.pos()
	c := lx.src[lx.off]

	switch {
	case isAlpha(c):
		begin := lx.off
		for !lx.atEOF() && isAlnum(lx.src[lx.off]) {
			lx.advance()
		}
		word := string(lx.src[begin:lx.off])
		if kind, ok := keywords[word]; ok && (kind != Goto || lx.version.hasGoto()) {
			return Token{Kind: kind, Value: word, Pos: start}, nil
		}
		return Token{Kind: Name, Value: word, Pos: start}, nil
	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		return lx.readNumber(start)
	case c == '"' || c == '\'':
		return lx.readString(start, c)
	case c == '[':
		if level, ok := lx.longBracketLevel(); ok {
			s, err := lx.readLongString(start, level)
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: String, Value: s, Pos: start}, nil
		}
		lx.advance()
		return Token{Kind: LBracket, Pos: start}, nil
	}

	return lx.readOperator(start, c)
}

func (lx *lexer) readOperator(start Pos, c byte) (Token, error) {
	tok := func(kind Kind, width int) (Token, error) {
		for range width {
			lx.advance()
		}
		return Token{Kind: kind, Pos: start}, nil
	}
	next := lx.peekByte(1)
	bitwise := lx.version.hasBitwise()

	switch c {
	case '+':
		return tok(Plus, 1)
	case '-':
		return tok(Minus, 1)
	case '*':
		return tok(Star, 1)
	case '/':
		if next == '/' && bitwise {
			return tok(DoubleSlash, 2)
		}
		return tok(Slash, 1)
	case '%':
		return tok(Percent, 1)
	case '^':
		return tok(Caret, 1)
	case '#':
		return tok(Hash, 1)
	case '&':
		if bitwise {
			return tok(Amp, 1)
		}
	case '|':
		if bitwise {
			return tok(Pipe, 1)
		}
	case '~':
		if next == '=' {
			return tok(Ne, 2)
		}
		if bitwise {
			return tok(Tilde, 1)
		}
	case '<':
		switch {
		case next == '=':
			return tok(Le, 2)
		case next == '<' && bitwise:
			return tok(Shl, 2)
		}
		return tok(Lt, 1)
	case '>':
		switch {
		case next == '=':
			return tok(Ge, 2)
		case next == '>' && bitwise:
			return tok(Shr, 2)
		}
		return tok(Gt, 1)
	case '=':
		if next == '=' {
			return tok(Eq, 2)
		}
		return tok(Assign, 1)
	case '(':
		return tok(LParen, 1)
	case ')':
		return tok(RParen, 1)
	case '{':
		return tok(LBrace, 1)
	case '}':
		return tok(RBrace, 1)
	case ']':
		return tok(RBracket, 1)
	case ';':
		return tok(Semi, 1)
	case ':':
		if next == ':' && lx.version.hasGoto() {
			return tok(DoubleColon, 2)
		}
		return tok(Colon, 1)
	case ',':
		return tok(Comma, 1)
	case '.':
		if next == '.' {
			if lx.peekByte(2) == '.' {
				return tok(Dots, 3)
			}
			return tok(Concat, 2)
		}
		return tok(Dot, 1)
	}

	r, _ := utf8.DecodeRune(lx.src[lx.off:])
	return Token{}, lx.errorf(start, "unexpected symbol near '%c'", r)
}

// readNumber follows Lua's read_numeral: it greedily consumes digits, dots,
// and signed exponents, then validates the whole lexeme.
func (lx *lexer) readNumber(start Pos) (Token, error) {
	begin := lx.off
	expo := "Ee"
	if lx.src[lx.off] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') {
		expo = "Pp"
		lx.advance()
		lx.advance()
	}
scan:
	for !lx.atEOF() {
		c := lx.src[lx.off]
		switch {
		case strings.IndexByte(expo, c) >= 0:
			lx.advance()
			if !lx.atEOF() && (lx.src[lx.off] == '+' || lx.src[lx.off] == '-') {
				lx.advance()
			}
		case isHexDigit(c) || c == '.':
			lx.advance()
		default:
			break scan
		}
	}
	if lx.version.orDefault() == LuaJIT {
		for _, suffix := range jitSuffixes {
			if strings.HasPrefix(string(lx.src[lx.off:min(lx.off+3, len(lx.src))]), suffix) {
				for range len(suffix) {
					lx.advance()
				}
				break
			}
		}
	}
	for !lx.atEOF() && isAlnum(lx.src[lx.off]) {
		lx.advance()
	}
	raw := string(lx.src[begin:lx.off])
	if !validNumeral(raw, lx.version.orDefault() == LuaJIT) {
		return Token{}, lx.errorf(start, "malformed number near '%s'", raw)
	}
	return Token{Kind: Number, Value: raw, Pos: start}, nil
}

func validNumeral(raw string, allowSuffix bool) bool {
	for _, suffix := range jitSuffixes {
		if allowSuffix && strings.HasSuffix(raw, suffix) && len(raw) > len(suffix) {
			raw = strings.TrimSuffix(raw, suffix)
			break
		}
	}
	if len(raw) > 2 && raw[0] == '0' && (raw[1] == 'x' || raw[1] == 'X') {
		return validHexNumeral(raw[2:])
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		var numErr *strconv.NumError
		// Out-of-range values are still well-formed numerals.
		return errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange)
	}
	// ParseFloat accepts forms Lua does not.
	return !strings.ContainsAny(raw, "_xXnN")
}

func validHexNumeral(body string) bool {
	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(body), "p")
	digits := 0
	dots := 0
	for i := range len(mantissa) {
		switch c := mantissa[i]; {
		case c == '.':
			dots++
		case isHexDigit(c):
			digits++
		default:
			return false
		}
	}
	if digits == 0 || dots > 1 {
		return false
	}
	if !hasExp {
		return true
	}
	exponent = strings.TrimLeft(exponent, "+-")
	if exponent == "" {
		return false
	}
	for i := range len(exponent) {
		if !isDigit(exponent[i]) {
			return false
		}
	}
	return true
}

// readString scans a quoted string and decodes its escape sequences.
func (lx *lexer) readString(start Pos, quote byte) (Token, error) {
	lx.advance()
	var sb strings.Builder
	for {
		if lx.atEOF() {
			return Token{}, lx.errorf(start, "unfinished string")
		}
		c := lx.src[lx.off]
		switch {
		case c == quote:
			lx.advance()
			return Token{Kind: String, Value: sb.String(), Pos: start}, nil
		case isNewline(c):
			return Token{}, lx.errorf(start, "unfinished string")
		case c == '\\':
			if err := lx.readEscape(&sb); err != nil {
				return Token{}, err
			}
		default:
			sb.WriteByte(c)
			lx.advance()
		}
	}
}

func (lx *lexer) readEscape(sb *strings.Builder) error {
	escPos := lx.pos()
	lx.advance()
	if lx.atEOF() {
		return lx.errorf(escPos, "unfinished string")
	}
	c := lx.src[lx.off]
	if b, ok := simpleEscapes[c]; ok {
		sb.WriteByte(b)
		lx.advance()
		return nil
	}
	switch {
	case isNewline(c):
		sb.WriteByte('\n')
		lx.newline()
		return nil
	case c == 'x':
		lx.advance()
		if !isHexDigit(lx.peekByte(0)) || !isHexDigit(lx.peekByte(1)) {
			return lx.errorf(escPos, "hexadecimal digit expected")
		}
		v, _ := strconv.ParseUint(string(lx.src[lx.off:lx.off+2]), 16, 8)
		sb.WriteByte(byte(v))
		lx.advance()
		lx.advance()
		return nil
	case c == 'z':
		lx.advance()
		for !lx.atEOF() && (isSpace(lx.src[lx.off]) || isNewline(lx.src[lx.off])) {
			if isNewline(lx.src[lx.off]) {
				lx.newline()
			} else {
				lx.advance()
			}
		}
		return nil
	case c == 'u':
		return lx.readUTF8Escape(sb, escPos)
	case isDigit(c):
		v := 0
		for i := 0; i < 3 && !lx.atEOF() && isDigit(lx.src[lx.off]); i++ {
			v = v*10 + int(lx.src[lx.off]-'0')
			lx.advance()
		}
		if v > 255 {
			return lx.errorf(escPos, "decimal escape too large")
		}
		sb.WriteByte(byte(v))
		return nil
	}
	return lx.errorf(escPos, "invalid escape sequence '\\%c'", c)
}

func (lx *lexer) readUTF8Escape(sb *strings.Builder, escPos Pos) error {
	lx.advance()
	if lx.peekByte(0) != '{' {
		return lx.errorf(escPos, "missing '{' in \\u{xxxx}")
	}
	lx.advance()
	var v uint64
	digits := 0
	for !lx.atEOF() && isHexDigit(lx.src[lx.off]) {
		d, _ := strconv.ParseUint(string(lx.src[lx.off]), 16, 8)
		v = v<<4 | d
		if v > 0x7FFFFFFF {
			return lx.errorf(escPos, "UTF-8 value too large")
		}
		digits++
		lx.advance()
	}
	if digits == 0 {
		return lx.errorf(escPos, "hexadecimal digit expected")
	}
	if lx.peekByte(0) != '}' {
		return lx.errorf(escPos, "missing '}' in \\u{xxxx}")
	}
	lx.advance()
	sb.WriteString(encodeUTF8(uint32(v)))
	return nil
}

// encodeUTF8 mirrors luaO_utf8esc, which also encodes surrogates and values
// beyond the Unicode range using the original 6-byte scheme.
func encodeUTF8(x uint32) string {
	if x < 0x80 {
		return string([]byte{byte(x)})
	}
	var buf [8]byte
	n := 1
	mfb := uint32(0x3f)
	for {
		buf[8-n] = byte(0x80 | (x & 0x3f))
		n++
		x >>= 6
		mfb >>= 1
		if x <= mfb {
			break
		}
	}
	buf[8-n] = byte((^mfb << 1) | x)
	return string(buf[8-n:])
}
