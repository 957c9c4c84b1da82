// SPDX-License-Identifier: MPL-2.0

package luasyntax

import (
	"errors"
	"strings"
	"testing"
)

func TestParseChunk_ValidPrograms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		version Version
		src     string
	}{
		{"empty", Lua53, ""},
		{"only semicolons", Lua53, ";;;"},
		{"locals and assignment", Lua53, "local a, b = 1, 2\na, b = b, a"},
		{"numeric for", Lua53, "for i = 1, 10, 2 do print(i) end"},
		{"generic for", Lua53, "for k, v in pairs(t) do t[k] = nil end"},
		{"while and repeat", Lua53, "while x do x = x - 1 end repeat x = x + 1 until x > 3"},
		{"if chain", Lua53, "if a then b() elseif c then d() else e() end"},
		{"functions", Lua53, "function M.a.b:c(x, ...) return self, x, ... end local function f() end"},
		{"anonymous function", Lua53, "local f = function(...) return select('#', ...) end"},
		{"table constructor", Lua53, "local t = {1, 2; x = 3, ['y'] = 4, f(), {}, }"},
		{"string call forms", Lua53, "f'a' f\"b\" f[[c]] f{d} obj:m'x' obj:n{}"},
		{"method chains", Lua53, "a.b[c]:d(e).f = g"},
		{"operators", Lua53, "x = not a or b and c == d .. e .. f ^ -g ^ h % #i"},
		{"bitwise 5.3", Lua53, "x = a // b & c | d ~ e << 1 >> 2 ~ ~f"},
		{"goto 5.2", Lua52, "goto done ::done::"},
		{"goto luajit", LuaJIT, "for i = 1, 3 do goto continue ::continue:: end"},
		{"attributes 5.4", Lua54, "local x <const>, y <close> = 1, nil"},
		{"return in do block", Lua53, "do return end print(1)"},
		{"return with semicolon", Lua53, "return 1;"},
		{"parenthesized call statement", Lua53, "(f)()"},
		{"break outside loop", Lua51, "break"},
		{"goto as name in 5.1", Lua51, "local goto = 1"},
		{"one semicolon per statement in 5.1", Lua51, "local x = 1; x = 2; f();"},
		{"empty statements 5.2", Lua52, "x = 1;;;"},
		{"empty statements luajit", LuaJIT, "; x = 1;;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseChunk([]byte(tt.src), WithVersion(tt.version)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseChunk_SyntaxErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		version Version
		src     string
		pos     Pos
		msg     string
	}{
		{"missing end", Lua53, "if x then\n  y()\n", Pos{3, 1}, "'end' expected (to close 'if' at line 1)"},
		{"bare expression", Lua53, "x", Pos{1, 2}, "syntax error"},
		{"assign to call", Lua53, "f() = 1", Pos{1, 5}, "syntax error"},
		{"statement after return", Lua53, "return 1 x = 2", Pos{1, 10}, "'<eof>' expected"},
		{"unexpected symbol", Lua53, "x = = 2", Pos{1, 5}, "unexpected symbol"},
		{"bad for", Lua53, "for x do end", Pos{1, 7}, "'=' or 'in' expected"},
		{"unclosed paren", Lua53, "f(1, 2", Pos{1, 7}, "')' expected"},
		{"unknown attribute", Lua54, "local x <foo> = 1", Pos{1, 10}, "unknown attribute 'foo'"},
		{"attribute before 5.4", Lua53, "local x <const> = 1", Pos{1, 9}, ""},
		{"bitwise before 5.3", Lua52, "x = a & b", Pos{1, 7}, "unexpected symbol"},
		{"label in 5.1", Lua51, "::top::", Pos{1, 1}, ""},
		{"repeated semicolon in 5.1", Lua51, "x = 1;;;", Pos{1, 7}, "unexpected symbol near ';'"},
		{"leading semicolon in 5.1", Lua51, ";x = 1", Pos{1, 1}, "unexpected symbol near ';'"},
		{"semicolon in empty 5.1 block", Lua51, "do ; end", Pos{1, 4}, "unexpected symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseChunk([]byte(tt.src), WithVersion(tt.version))
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("expected syntax error, got %v", err)
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if synErr.Pos != tt.pos {
				t.Errorf("expected error at %s, got %s (%v)", tt.pos, synErr.Pos, err)
			}
			if tt.msg != "" && !strings.Contains(synErr.Message, tt.msg) {
				t.Errorf("expected message containing %q, got %q", tt.msg, synErr.Message)
			}
		})
	}
}

func TestParseChunk_Precedence(t *testing.T) {
	t.Parallel()
	chunk, err := ParseChunk([]byte("x = 1 + 2 * 3 .. 'a' .. 'b'"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assign := chunk.Block.Stmts[0].(*AssignStmt)

	// Concat is right-associative and binds looser than +.
	top, ok := assign.Values[0].(*BinaryExpr)
	if !ok || top.Op != Concat {
		t.Fatalf("expected top-level concat, got %#v", assign.Values[0])
	}
	sum, ok := top.Left.(*BinaryExpr)
	if !ok || sum.Op != Plus {
		t.Fatalf("expected addition on the left, got %#v", top.Left)
	}
	if mul, ok := sum.Right.(*BinaryExpr); !ok || mul.Op != Star {
		t.Errorf("expected multiplication under addition, got %#v", sum.Right)
	}
	if rest, ok := top.Right.(*BinaryExpr); !ok || rest.Op != Concat {
		t.Errorf("expected nested concat on the right, got %#v", top.Right)
	}
}

func TestParseChunk_PowerBindsTighterThanUnary(t *testing.T) {
	t.Parallel()
	chunk, err := ParseChunk([]byte("x = -2 ^ 2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	neg, ok := chunk.Block.Stmts[0].(*AssignStmt).Values[0].(*UnaryExpr)
	if !ok || neg.Op != Minus {
		t.Fatalf("expected unary minus at the top")
	}
	if pow, ok := neg.X.(*BinaryExpr); !ok || pow.Op != Caret {
		t.Errorf("expected power under unary minus, got %#v", neg.X)
	}
}

func TestParseChunk_MethodDeclarationAddsSelf(t *testing.T) {
	t.Parallel()
	chunk, err := ParseChunk([]byte("function obj:m(a) end"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := chunk.Block.Stmts[0].(*FunctionStmt)
	if fn.Method == nil || fn.Method.Name != "m" {
		t.Fatalf("expected method m, got %#v", fn.Method)
	}
	if len(fn.Func.Params) != 2 || fn.Func.Params[0].Name != "self" {
		t.Errorf("expected implicit self parameter, got %v", fn.Func.Params)
	}
}

func TestInspect_SkipsChildren(t *testing.T) {
	t.Parallel()
	chunk, err := ParseChunk([]byte("local function f() g() end h()"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var calls []string
	Inspect(chunk.Block, func(n Node) bool {
		if _, ok := n.(*FunctionExpr); ok {
			return false
		}
		if c, ok := n.(*CallExpr); ok {
			calls = append(calls, c.Fn.(*Ident).Name)
		}
		return true
	})
	if len(calls) != 1 || calls[0] != "h" {
		t.Errorf("expected only [h], got %v", calls)
	}
}

func TestVersion_IsValid(t *testing.T) {
	t.Parallel()
	for _, v := range append(Versions(), "") {
		if ok, errs := v.IsValid(); !ok || errs != nil {
			t.Errorf("expected %q to be valid, got %v", v, errs)
		}
	}
	ok, errs := Version("5.5").IsValid()
	if ok || len(errs) != 1 {
		t.Fatalf("expected one error for 5.5, got %v", errs)
	}
	if !errors.Is(errs[0], ErrInvalidVersion) {
		t.Errorf("expected ErrInvalidVersion, got %v", errs[0])
	}
	if Version("").String() != "5.3" {
		t.Errorf("expected zero value to print as the default version")
	}
}
