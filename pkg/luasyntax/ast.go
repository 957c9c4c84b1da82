// SPDX-License-Identifier: MPL-2.0

package luasyntax

type (
	// Node is implemented by every syntax tree node.
	Node interface {
		Pos() Pos
	}

	// Expr is an expression node.
	Expr interface {
		Node
		exprNode()
	}

	// Stmt is a statement node.
	Stmt interface {
		Node
		stmtNode()
	}

	// Chunk is a parsed source file.
	Chunk struct {
		Block *Block
	}

	// Block is a sequence of statements optionally ending in a return.
	Block struct {
		Start  Pos
		Stmts  []Stmt
		Return *ReturnStmt
	}

	// NilExpr is the nil literal.
	NilExpr struct{ At Pos }

	// BoolExpr is true or false.
	BoolExpr struct {
		At    Pos
		Value bool
	}

	// NumberExpr is a numeral; Raw keeps its source spelling.
	NumberExpr struct {
		At  Pos
		Raw string
	}

	// StringExpr is a string literal with escapes decoded.
	StringExpr struct {
		At    Pos
		Value string
	}

	// VarargExpr is "...".
	VarargExpr struct{ At Pos }

	// Ident is a variable name.
	Ident struct {
		At   Pos
		Name string
	}

	// FunctionExpr is a function body, either anonymous or attached to a
	// function statement.
	FunctionExpr struct {
		At       Pos
		Params   []*Ident
		IsVararg bool
		Body     *Block
	}

	// TableExpr is a table constructor.
	TableExpr struct {
		At     Pos
		Fields []*Field
	}

	// Field is one entry of a table constructor. Key is nil for positional
	// fields; named fields ("name = v") carry a StringExpr key.
	Field struct {
		Key   Expr
		Value Expr
	}

	// BinaryExpr is a binary operation; At is the operator position.
	BinaryExpr struct {
		At    Pos
		Op    Kind
		Left  Expr
		Right Expr
	}

	// UnaryExpr is a prefix operation (not, -, #, ~).
	UnaryExpr struct {
		At Pos
		Op Kind
		X  Expr
	}

	// ParenExpr is a parenthesized expression, which truncates multiple
	// results to one.
	ParenExpr struct {
		At Pos
		X  Expr
	}

	// IndexExpr is "x[key]".
	IndexExpr struct {
		X   Expr
		Key Expr
	}

	// SelectorExpr is "x.name".
	SelectorExpr struct {
		X    Expr
		Name *Ident
	}

	// CallExpr is "fn(args)", "fn 'str'" or "fn {table}".
	CallExpr struct {
		Fn   Expr
		Args []Expr
	}

	// MethodCallExpr is "recv:name(args)".
	MethodCallExpr struct {
		Recv Expr
		Name *Ident
		Args []Expr
	}

	// AssignStmt is "targets = values".
	AssignStmt struct {
		Targets []Expr
		Values  []Expr
	}

	// CallStmt is a function call used as a statement.
	CallStmt struct {
		Call Expr
	}

	// LocalName is one name of a local declaration with its optional
	// attribute ("const" or "close").
	LocalName struct {
		Name   *Ident
		Attrib string
	}

	// LocalStmt is "local names = values".
	LocalStmt struct {
		At     Pos
		Names  []*LocalName
		Values []Expr
	}

	// LocalFunctionStmt is "local function name body".
	LocalFunctionStmt struct {
		At   Pos
		Name *Ident
		Func *FunctionExpr
	}

	// FunctionStmt is "function a.b.c:m body".
	FunctionStmt struct {
		At     Pos
		Path   []*Ident
		Method *Ident
		Func   *FunctionExpr
	}

	// DoStmt is "do block end".
	DoStmt struct {
		At   Pos
		Body *Block
	}

	// WhileStmt is "while cond do block end".
	WhileStmt struct {
		At   Pos
		Cond Expr
		Body *Block
	}

	// RepeatStmt is "repeat block until cond".
	RepeatStmt struct {
		At   Pos
		Body *Block
		Cond Expr
	}

	// IfClause is one "if"/"elseif" arm.
	IfClause struct {
		Cond Expr
		Body *Block
	}

	// IfStmt is an if statement with its elseif arms and optional else.
	IfStmt struct {
		At      Pos
		Clauses []*IfClause
		Else    *Block
	}

	// NumericForStmt is "for v = start, limit[, step] do block end".
	NumericForStmt struct {
		At    Pos
		Var   *Ident
		Start Expr
		Limit Expr
		Step  Expr
		Body  *Block
	}

	// GenericForStmt is "for names in exprs do block end".
	GenericForStmt struct {
		At    Pos
		Names []*Ident
		Exprs []Expr
		Body  *Block
	}

	// ReturnStmt is "return values".
	ReturnStmt struct {
		At     Pos
		Values []Expr
	}

	// BreakStmt is "break".
	BreakStmt struct{ At Pos }

	// GotoStmt is "goto label".
	GotoStmt struct {
		At    Pos
		Label *Ident
	}

	// LabelStmt is "::name::".
	LabelStmt struct {
		At   Pos
		Name *Ident
	}
)

func (n *Block) Pos() Pos             { return n.Start }
func (n *NilExpr) Pos() Pos           { return n.At }
func (n *BoolExpr) Pos() Pos          { return n.At }
func (n *NumberExpr) Pos() Pos        { return n.At }
func (n *StringExpr) Pos() Pos        { return n.At }
func (n *VarargExpr) Pos() Pos        { return n.At }
func (n *Ident) Pos() Pos             { return n.At }
func (n *FunctionExpr) Pos() Pos      { return n.At }
func (n *TableExpr) Pos() Pos         { return n.At }
func (n *BinaryExpr) Pos() Pos        { return n.Left.Pos() }
func (n *UnaryExpr) Pos() Pos         { return n.At }
func (n *ParenExpr) Pos() Pos         { return n.At }
func (n *IndexExpr) Pos() Pos         { return n.X.Pos() }
func (n *SelectorExpr) Pos() Pos      { return n.X.Pos() }
func (n *CallExpr) Pos() Pos          { return n.Fn.Pos() }
func (n *MethodCallExpr) Pos() Pos    { return n.Recv.Pos() }
func (n *AssignStmt) Pos() Pos        { return n.Targets[0].Pos() }
func (n *CallStmt) Pos() Pos          { return n.Call.Pos() }
func (n *LocalStmt) Pos() Pos         { return n.At }
func (n *LocalFunctionStmt) Pos() Pos { return n.At }
func (n *FunctionStmt) Pos() Pos      { return n.At }
func (n *DoStmt) Pos() Pos            { return n.At }
func (n *WhileStmt) Pos() Pos         { return n.At }
func (n *RepeatStmt) Pos() Pos        { return n.At }
func (n *IfStmt) Pos() Pos            { return n.At }
func (n *NumericForStmt) Pos() Pos    { return n.At }
func (n *GenericForStmt) Pos() Pos    { return n.At }
func (n *ReturnStmt) Pos() Pos        { return n.At }
func (n *BreakStmt) Pos() Pos         { return n.At }
func (n *GotoStmt) Pos() Pos          { return n.At }
func (n *LabelStmt) Pos() Pos         { return n.At }

func (*NilExpr) exprNode()        {}
func (*BoolExpr) exprNode()       {}
func (*NumberExpr) exprNode()     {}
func (*StringExpr) exprNode()     {}
func (*VarargExpr) exprNode()     {}
func (*Ident) exprNode()          {}
func (*FunctionExpr) exprNode()   {}
func (*TableExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*ParenExpr) exprNode()      {}
func (*IndexExpr) exprNode()      {}
func (*SelectorExpr) exprNode()   {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}

func (*AssignStmt) stmtNode()        {}
func (*CallStmt) stmtNode()          {}
func (*LocalStmt) stmtNode()         {}
func (*LocalFunctionStmt) stmtNode() {}
func (*FunctionStmt) stmtNode()      {}
func (*DoStmt) stmtNode()            {}
func (*WhileStmt) stmtNode()         {}
func (*RepeatStmt) stmtNode()        {}
func (*IfStmt) stmtNode()            {}
func (*NumericForStmt) stmtNode()    {}
func (*GenericForStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()        {}
func (*BreakStmt) stmtNode()         {}
func (*GotoStmt) stmtNode()          {}
func (*LabelStmt) stmtNode()         {}

// Inspect traverses the tree rooted at node in source order, calling f for
// every node. If f returns false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	exprs := func(list []Expr) {
		for _, e := range list {
			Inspect(e, f)
		}
	}
	block := func(b *Block) {
		if b != nil {
			Inspect(b, f)
		}
	}

	switch n := node.(type) {
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
		if n.Return != nil {
			Inspect(n.Return, f)
		}
	case *FunctionExpr:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		block(n.Body)
	case *TableExpr:
		for _, fld := range n.Fields {
			if fld.Key != nil {
				Inspect(fld.Key, f)
			}
			Inspect(fld.Value, f)
		}
	case *BinaryExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *UnaryExpr:
		Inspect(n.X, f)
	case *ParenExpr:
		Inspect(n.X, f)
	case *IndexExpr:
		Inspect(n.X, f)
		Inspect(n.Key, f)
	case *SelectorExpr:
		Inspect(n.X, f)
		Inspect(n.Name, f)
	case *CallExpr:
		Inspect(n.Fn, f)
		exprs(n.Args)
	case *MethodCallExpr:
		Inspect(n.Recv, f)
		Inspect(n.Name, f)
		exprs(n.Args)
	case *AssignStmt:
		exprs(n.Targets)
		exprs(n.Values)
	case *CallStmt:
		Inspect(n.Call, f)
	case *LocalStmt:
		for _, ln := range n.Names {
			Inspect(ln.Name, f)
		}
		exprs(n.Values)
	case *LocalFunctionStmt:
		Inspect(n.Name, f)
		Inspect(n.Func, f)
	case *FunctionStmt:
		for _, id := range n.Path {
			Inspect(id, f)
		}
		if n.Method != nil {
			Inspect(n.Method, f)
		}
		Inspect(n.Func, f)
	case *DoStmt:
		block(n.Body)
	case *WhileStmt:
		Inspect(n.Cond, f)
		block(n.Body)
	case *RepeatStmt:
		block(n.Body)
		Inspect(n.Cond, f)
	case *IfStmt:
		for _, c := range n.Clauses {
			Inspect(c.Cond, f)
			block(c.Body)
		}
		block(n.Else)
	case *NumericForStmt:
		Inspect(n.Var, f)
		Inspect(n.Start, f)
		Inspect(n.Limit, f)
		if n.Step != nil {
			Inspect(n.Step, f)
		}
		block(n.Body)
	case *GenericForStmt:
		for _, id := range n.Names {
			Inspect(id, f)
		}
		exprs(n.Exprs)
		block(n.Body)
	case *ReturnStmt:
		exprs(n.Values)
	case *GotoStmt:
		Inspect(n.Label, f)
	case *LabelStmt:
		Inspect(n.Name, f)
	}
}
