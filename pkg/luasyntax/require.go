// SPDX-License-Identifier: MPL-2.0

package luasyntax

import "slices"

const (
	// Literal is a require call whose argument is known at bundle time.
	Literal RequireKind = iota
	// Dynamic is a require call whose argument is computed at run time.
	Dynamic
)

type (
	// RequireKind tags a Require as Literal or Dynamic.
	RequireKind int

	// Require is one require call site found in a chunk.
	Require struct {
		Kind RequireKind
		// Value is the module name for Literal requires and empty otherwise.
		Value string
		// Pos is the position of the require identifier.
		Pos Pos
		// Call is the call expression the require was found in.
		Call *CallExpr
	}
)

// String returns "literal" or "dynamic".
func (k RequireKind) String() string {
	if k == Literal {
		return "literal"
	}
	return "dynamic"
}

// Classify walks the chunk and returns every call to one of the given
// require names (default "require") in source order. A call counts only when
// its callee is the bare name; field and method calls are skipped. The call is
// Literal when its sole argument folds to a constant string and Dynamic for
// any other argument list.
func Classify(chunk *Chunk, names ...string) []Require {
	if chunk == nil || chunk.Block == nil {
		return nil
	}
	if len(names) == 0 {
		names = []string{"require"}
	}

	var out []Require
	Inspect(chunk.Block, func(n Node) bool {
		call, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		id, ok := call.Fn.(*Ident)
		if !ok || !slices.Contains(names, id.Name) {
			return true
		}
		req := Require{Kind: Dynamic, Pos: id.At, Call: call}
		if len(call.Args) == 1 {
			if s, ok := constantString(call.Args[0]); ok {
				req.Kind = Literal
				req.Value = s
			}
		}
		out = append(out, req)
		return true
	})

	slices.SortStableFunc(out, func(a, b Require) int {
		switch {
		case a.Pos.Before(b.Pos):
			return -1
		case b.Pos.Before(a.Pos):
			return 1
		default:
			return 0
		}
	})
	return out
}

// constantString folds string literals, parentheses and ".." into a value.
func constantString(e Expr) (string, bool) {
	switch x := e.(type) {
	case *StringExpr:
		return x.Value, true
	case *ParenExpr:
		return constantString(x.X)
	case *BinaryExpr:
		if x.Op != Concat {
			return "", false
		}
		left, ok := constantString(x.Left)
		if !ok {
			return "", false
		}
		right, ok := constantString(x.Right)
		if !ok {
			return "", false
		}
		return left + right, true
	default:
		return "", false
	}
}
