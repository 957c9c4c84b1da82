// SPDX-License-Identifier: MPL-2.0

package luasyntax

import "fmt"

const (
	EOF Kind = iota
	Name
	String
	Number

	// Keywords.
	And
	Break
	Do
	Else
	Elseif
	End
	False
	For
	Function
	Goto
	If
	In
	Local
	Nil
	Not
	Or
	Repeat
	Return
	Then
	True
	Until
	While

	// Operators and punctuation.
	Plus
	Minus
	Star
	Slash
	DoubleSlash
	Percent
	Caret
	Hash
	Amp
	Tilde
	Pipe
	Shl
	Shr
	Concat
	Dots
	Eq
	Ne
	Le
	Ge
	Lt
	Gt
	Assign
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	DoubleColon
	Semi
	Colon
	Comma
	Dot
)

type (
	// Kind identifies the lexical class of a Token.
	Kind int

	// Pos is a 1-based line and column in the source text. Columns count bytes.
	Pos struct {
		Line   int
		Column int
	}

	// Token is a single lexical token. Value holds the decoded contents of a
	// string literal and the raw text of names and numerals.
	Token struct {
		Kind  Kind
		Value string
		Pos   Pos
	}
)

var kindNames = [...]string{
	EOF:         "<eof>",
	Name:        "<name>",
	String:      "<string>",
	Number:      "<number>",
	And:         "and",
	Break:       "break",
	Do:          "do",
	Else:        "else",
	Elseif:      "elseif",
	End:         "end",
	False:       "false",
	For:         "for",
	Function:    "function",
	Goto:        "goto",
	If:          "if",
	In:          "in",
	Local:       "local",
	Nil:         "nil",
	Not:         "not",
	Or:          "or",
	Repeat:      "repeat",
	Return:      "return",
	Then:        "then",
	True:        "true",
	Until:       "until",
	While:       "while",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	Slash:       "/",
	DoubleSlash: "//",
	Percent:     "%",
	Caret:       "^",
	Hash:        "#",
	Amp:         "&",
	Tilde:       "~",
	Pipe:        "|",
	Shl:         "<<",
	Shr:         ">>",
	Concat:      "..",
	Dots:        "...",
	Eq:          "==",
	Ne:          "~=",
	Le:          "<=",
	Ge:          ">=",
	Lt:          "<",
	Gt:          ">",
	Assign:      "=",
	LParen:      "(",
	RParen:      ")",
	LBrace:      "{",
	RBrace:      "}",
	LBracket:    "[",
	RBracket:    "]",
	DoubleColon: "::",
	Semi:        ";",
	Colon:       ":",
	Comma:       ",",
	Dot:         ".",
}

var keywords = map[string]Kind{
	"and":      And,
	"break":    Break,
	"do":       Do,
	"else":     Else,
	"elseif":   Elseif,
	"end":      End,
	"false":    False,
	"for":      For,
	"function": Function,
	"goto":     Goto,
	"if":       If,
	"in":       In,
	"local":    Local,
	"nil":      Nil,
	"not":      Not,
	"or":       Or,
	"repeat":   Repeat,
	"return":   Return,
	"then":     Then,
	"true":     True,
	"until":    Until,
	"while":    While,
}

// String returns the source spelling of the kind, or a placeholder for
// literal classes.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// String formats the position as line:column.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before reports whether p comes strictly before q in the source.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// near renders the token the way Lua error messages quote it.
func (t Token) near() string {
	switch t.Kind {
	case EOF:
		return "<eof>"
	case Name, Number:
		return t.Value
	case String:
		return fmt.Sprintf("%q", t.Value)
	default:
		return t.Kind.String()
	}
}

// IsKeyword reports whether name is reserved in any supported dialect.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}
