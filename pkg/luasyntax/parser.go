// SPDX-License-Identifier: MPL-2.0

package luasyntax

// unaryPriority is the binding power of prefix operators.
const unaryPriority = 12

type (
	// Option configures Parse.
	Option func(*options)

	options struct {
		version      Version
		requireNames []string
	}

	parser struct {
		lx    *lexer
		tok   Token
		ahead *Token
		opts  options
	}

	// binaryPriority holds the left and right binding power of an operator.
	// Right-associative operators bind less tightly on the right.
	binaryPriority struct {
		left, right int
	}
)

var binaryPriorities = map[Kind]binaryPriority{
	Or:  {1, 1},
	And: {2, 2},
	Lt:  {3, 3}, Gt: {3, 3}, Le: {3, 3}, Ge: {3, 3}, Ne: {3, 3}, Eq: {3, 3},
	Pipe:   {4, 4},
	Tilde:  {5, 5},
	Amp:    {6, 6},
	Shl:    {7, 7},
	Shr:    {7, 7},
	Concat: {9, 8},
	Plus:   {10, 10}, Minus: {10, 10},
	Star: {11, 11}, Slash: {11, 11}, DoubleSlash: {11, 11}, Percent: {11, 11},
	Caret: {14, 13},
}

// WithVersion selects the Lua dialect. The zero value means DefaultVersion.
func WithVersion(v Version) Option {
	return func(o *options) { o.version = v }
}

// WithRequireNames replaces the identifiers treated as require functions.
// The default is "require".
func WithRequireNames(names ...string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.requireNames = names
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{version: DefaultVersion, requireNames: []string{"require"}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parse parses src and classifies its require calls. A SyntaxError is
// returned for malformed input.
func Parse(src []byte, opts ...Option) (*Chunk, []Require, error) {
	o := buildOptions(opts)
	chunk, err := parse(src, o)
	if err != nil {
		return nil, nil, err
	}
	return chunk, Classify(chunk, o.requireNames...), nil
}

// ParseChunk parses src without classifying require calls.
func ParseChunk(src []byte, opts ...Option) (*Chunk, error) {
	return parse(src, buildOptions(opts))
}

func parse(src []byte, o options) (*Chunk, error) {
	p := &parser{lx: newLexer(src, o.version), opts: o}
	if err := p.next(); err != nil {
		return nil, err
	}
	block, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != EOF {
		return nil, p.errorNear("'<eof>' expected")
	}
	return &Chunk{Block: block}, nil
}

func (p *parser) next() error {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return nil
	}
	tok, err := p.lx.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) peek() (Token, error) {
	if p.ahead == nil {
		tok, err := p.lx.next()
		if err != nil {
			return Token{}, err
		}
		p.ahead = &tok
	}
	return *p.ahead, nil
}

func (p *parser) errorNear(msg string) error {
	return p.lx.errorf(p.tok.Pos, "%s near '%s'", msg, p.tok.near())
}

// expect consumes a token of the given kind.
func (p *parser) expect(kind Kind) (Token, error) {
	if p.tok.Kind != kind {
		return Token{}, p.errorNear("'" + kind.String() + "' expected")
	}
	tok := p.tok
	return tok, p.next()
}

// expectMatch consumes the closing token of a construct opened at open.
func (p *parser) expectMatch(kind, opener Kind, open Pos) error {
	if p.tok.Kind == kind {
		return p.next()
	}
	if open.Line == p.tok.Pos.Line {
		return p.errorNear("'" + kind.String() + "' expected")
	}
	return p.lx.errorf(p.tok.Pos, "'%s' expected (to close '%s' at line %d) near '%s'",
		kind, opener, open.Line, p.tok.near())
}

func (p *parser) accept(kind Kind) (bool, error) {
	if p.tok.Kind != kind {
		return false, nil
	}
	return true, p.next()
}

func (p *parser) ident() (*Ident, error) {
	tok, err := p.expect(Name)
	if err != nil {
		return nil, err
	}
	return &Ident{At: tok.Pos, Name: tok.Value}, nil
}

func blockFollows(kind Kind, withUntil bool) bool {
	switch kind {
	case Else, Elseif, End, EOF:
		return true
	case Until:
		return withUntil
	default:
		return false
	}
}

func (p *parser) block() (*Block, error) {
	b := &Block{Start: p.tok.Pos}
	for !blockFollows(p.tok.Kind, true) {
		if p.tok.Kind == Return {
			ret, err := p.returnStmt()
			if err != nil {
				return nil, err
			}
			b.Return = ret
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			b.Stmts = append(b.Stmts, stmt)
		}
		if !p.opts.version.hasEmptyStatement() {
			if _, err := p.accept(Semi); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (p *parser) returnStmt() (*ReturnStmt, error) {
	ret := &ReturnStmt{At: p.tok.Pos}
	if err := p.next(); err != nil {
		return nil, err
	}
	if !blockFollows(p.tok.Kind, true) && p.tok.Kind != Semi {
		values, err := p.exprList()
		if err != nil {
			return nil, err
		}
		ret.Values = values
	}
	if _, err := p.accept(Semi); err != nil {
		return nil, err
	}
	if !blockFollows(p.tok.Kind, true) {
		return nil, p.errorNear("'<eof>' expected")
	}
	return ret, nil
}

func (p *parser) statement() (Stmt, error) {
	start := p.tok.Pos
	switch p.tok.Kind {
	case Semi:
		if !p.opts.version.hasEmptyStatement() {
			return nil, p.errorNear("unexpected symbol")
		}
		return nil, p.next()
	case If:
		return p.ifStmt()
	case While:
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Do); err != nil {
			return nil, err
		}
		body, err := p.blockUntil(End, While, start)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{At: start, Cond: cond, Body: body}, nil
	case Do:
		if err := p.next(); err != nil {
			return nil, err
		}
		body, err := p.blockUntil(End, Do, start)
		if err != nil {
			return nil, err
		}
		return &DoStmt{At: start, Body: body}, nil
	case For:
		return p.forStmt()
	case Repeat:
		if err := p.next(); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if err := p.expectMatch(Until, Repeat, start); err != nil {
			return nil, err
		}
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &RepeatStmt{At: start, Body: body, Cond: cond}, nil
	case Function:
		return p.functionStmt()
	case Local:
		if err := p.next(); err != nil {
			return nil, err
		}
		if ok, err := p.accept(Function); err != nil {
			return nil, err
		} else if ok {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			fn, err := p.funcBody(start, false)
			if err != nil {
				return nil, err
			}
			return &LocalFunctionStmt{At: start, Name: name, Func: fn}, nil
		}
		return p.localStmt(start)
	case DoubleColon:
		if err := p.next(); err != nil {
			return nil, err
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(DoubleColon); err != nil {
			return nil, err
		}
		return &LabelStmt{At: start, Name: name}, nil
	case Break:
		return &BreakStmt{At: start}, p.next()
	case Goto:
		if err := p.next(); err != nil {
			return nil, err
		}
		label, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &GotoStmt{At: start, Label: label}, nil
	}
	return p.exprStmt()
}

func (p *parser) blockUntil(closer, opener Kind, open Pos) (*Block, error) {
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.expectMatch(closer, opener, open); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *parser) ifStmt() (*IfStmt, error) {
	stmt := &IfStmt{At: p.tok.Pos}
	for {
		// Current token is "if" or "elseif".
		if err := p.next(); err != nil {
			return nil, err
		}
		cond, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Then); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Clauses = append(stmt.Clauses, &IfClause{Cond: cond, Body: body})
		if p.tok.Kind != Elseif {
			break
		}
	}
	if ok, err := p.accept(Else); err != nil {
		return nil, err
	} else if ok {
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	if err := p.expectMatch(End, If, stmt.At); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) forStmt() (Stmt, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	first, err := p.ident()
	if err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case Assign:
		if err := p.next(); err != nil {
			return nil, err
		}
		stmt := &NumericForStmt{At: start, Var: first}
		if stmt.Start, err = p.expr(0); err != nil {
			return nil, err
		}
		if _, err := p.expect(Comma); err != nil {
			return nil, err
		}
		if stmt.Limit, err = p.expr(0); err != nil {
			return nil, err
		}
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if ok {
			if stmt.Step, err = p.expr(0); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(Do); err != nil {
			return nil, err
		}
		if stmt.Body, err = p.blockUntil(End, For, start); err != nil {
			return nil, err
		}
		return stmt, nil
	case Comma, In:
		stmt := &GenericForStmt{At: start, Names: []*Ident{first}}
		for p.tok.Kind == Comma {
			if err := p.next(); err != nil {
				return nil, err
			}
			id, err := p.ident()
			if err != nil {
				return nil, err
			}
			stmt.Names = append(stmt.Names, id)
		}
		if _, err := p.expect(In); err != nil {
			return nil, err
		}
		if stmt.Exprs, err = p.exprList(); err != nil {
			return nil, err
		}
		if _, err := p.expect(Do); err != nil {
			return nil, err
		}
		if stmt.Body, err = p.blockUntil(End, For, start); err != nil {
			return nil, err
		}
		return stmt, nil
	}
	return nil, p.errorNear("'=' or 'in' expected")
}

func (p *parser) functionStmt() (*FunctionStmt, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	stmt := &FunctionStmt{At: start}
	id, err := p.ident()
	if err != nil {
		return nil, err
	}
	stmt.Path = append(stmt.Path, id)
	for p.tok.Kind == Dot {
		if err := p.next(); err != nil {
			return nil, err
		}
		if id, err = p.ident(); err != nil {
			return nil, err
		}
		stmt.Path = append(stmt.Path, id)
	}
	if ok, err := p.accept(Colon); err != nil {
		return nil, err
	} else if ok {
		if stmt.Method, err = p.ident(); err != nil {
			return nil, err
		}
	}
	if stmt.Func, err = p.funcBody(start, stmt.Method != nil); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) localStmt(start Pos) (*LocalStmt, error) {
	stmt := &LocalStmt{At: start}
	for {
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		ln := &LocalName{Name: id}
		if p.tok.Kind == Lt && p.opts.version.hasAttribs() {
			if err := p.next(); err != nil {
				return nil, err
			}
			attr, err := p.expect(Name)
			if err != nil {
				return nil, err
			}
			if attr.Value != "const" && attr.Value != "close" {
				return nil, p.lx.errorf(attr.Pos, "unknown attribute '%s'", attr.Value)
			}
			ln.Attrib = attr.Value
			if _, err := p.expect(Gt); err != nil {
				return nil, err
			}
		}
		stmt.Names = append(stmt.Names, ln)
		if ok, err := p.accept(Comma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if ok, err := p.accept(Assign); err != nil {
		return nil, err
	} else if ok {
		values, err := p.exprList()
		if err != nil {
			return nil, err
		}
		stmt.Values = values
	}
	return stmt, nil
}

func (p *parser) exprStmt() (Stmt, error) {
	first, err := p.suffixedExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == Assign || p.tok.Kind == Comma {
		targets := []Expr{first}
		for p.tok.Kind == Comma {
			if err := p.next(); err != nil {
				return nil, err
			}
			target, err := p.suffixedExpr()
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		for _, t := range targets {
			if !assignable(t) {
				return nil, p.errorNear("syntax error")
			}
		}
		if _, err := p.expect(Assign); err != nil {
			return nil, err
		}
		values, err := p.exprList()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Targets: targets, Values: values}, nil
	}
	switch first.(type) {
	case *CallExpr, *MethodCallExpr:
		return &CallStmt{Call: first}, nil
	}
	return nil, p.errorNear("syntax error")
}

func assignable(e Expr) bool {
	switch e.(type) {
	case *Ident, *IndexExpr, *SelectorExpr:
		return true
	default:
		return false
	}
}

func (p *parser) exprList() ([]Expr, error) {
	first, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	list := []Expr{first}
	for p.tok.Kind == Comma {
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

// expr parses a subexpression whose binary operators bind tighter than limit.
func (p *parser) expr(limit int) (Expr, error) {
	var left Expr
	switch p.tok.Kind {
	case Not, Minus, Hash, Tilde:
		op := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.expr(unaryPriority)
		if err != nil {
			return nil, err
		}
		left = &UnaryExpr{At: op.Pos, Op: op.Kind, X: x}
	default:
		simple, err := p.simpleExpr()
		if err != nil {
			return nil, err
		}
		left = simple
	}

	for {
		prio, ok := binaryPriorities[p.tok.Kind]
		if !ok || prio.left <= limit {
			return left, nil
		}
		op := p.tok
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.expr(prio.right)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{At: op.Pos, Op: op.Kind, Left: left, Right: right}
	}
}

func (p *parser) simpleExpr() (Expr, error) {
	tok := p.tok
	switch tok.Kind {
	case Number:
		return &NumberExpr{At: tok.Pos, Raw: tok.Value}, p.next()
	case String:
		return &StringExpr{At: tok.Pos, Value: tok.Value}, p.next()
	case Nil:
		return &NilExpr{At: tok.Pos}, p.next()
	case True:
		return &BoolExpr{At: tok.Pos, Value: true}, p.next()
	case False:
		return &BoolExpr{At: tok.Pos, Value: false}, p.next()
	case Dots:
		return &VarargExpr{At: tok.Pos}, p.next()
	case LBrace:
		return p.tableConstructor()
	case Function:
		if err := p.next(); err != nil {
			return nil, err
		}
		return p.funcBody(tok.Pos, false)
	}
	return p.suffixedExpr()
}

func (p *parser) primaryExpr() (Expr, error) {
	switch p.tok.Kind {
	case Name:
		return p.ident()
	case LParen:
		open := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectMatch(RParen, LParen, open); err != nil {
			return nil, err
		}
		return &ParenExpr{At: open, X: x}, nil
	}
	return nil, p.errorNear("unexpected symbol")
}

func (p *parser) suffixedExpr() (Expr, error) {
	x, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case Dot:
			if err := p.next(); err != nil {
				return nil, err
			}
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			x = &SelectorExpr{X: x, Name: name}
		case LBracket:
			if err := p.next(); err != nil {
				return nil, err
			}
			key, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBracket); err != nil {
				return nil, err
			}
			x = &IndexExpr{X: x, Key: key}
		case Colon:
			if err := p.next(); err != nil {
				return nil, err
			}
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			x = &MethodCallExpr{Recv: x, Name: name, Args: args}
		case LParen, String, LBrace:
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			x = &CallExpr{Fn: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) callArgs() ([]Expr, error) {
	switch p.tok.Kind {
	case String:
		arg := &StringExpr{At: p.tok.Pos, Value: p.tok.Value}
		return []Expr{arg}, p.next()
	case LBrace:
		table, err := p.tableConstructor()
		if err != nil {
			return nil, err
		}
		return []Expr{table}, nil
	case LParen:
		open := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		var args []Expr
		if p.tok.Kind != RParen {
			list, err := p.exprList()
			if err != nil {
				return nil, err
			}
			args = list
		}
		if err := p.expectMatch(RParen, LParen, open); err != nil {
			return nil, err
		}
		return args, nil
	}
	return nil, p.errorNear("function arguments expected")
}

func (p *parser) tableConstructor() (*TableExpr, error) {
	open := p.tok.Pos
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	table := &TableExpr{At: open}
	for p.tok.Kind != RBrace {
		field, err := p.field()
		if err != nil {
			return nil, err
		}
		table.Fields = append(table.Fields, field)
		if p.tok.Kind != Comma && p.tok.Kind != Semi {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.expectMatch(RBrace, LBrace, open); err != nil {
		return nil, err
	}
	return table, nil
}

func (p *parser) field() (*Field, error) {
	switch p.tok.Kind {
	case Name:
		ahead, err := p.peek()
		if err != nil {
			return nil, err
		}
		if ahead.Kind != Assign {
			break
		}
		key := &StringExpr{At: p.tok.Pos, Value: p.tok.Value}
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		value, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &Field{Key: key, Value: value}, nil
	case LBracket:
		if err := p.next(); err != nil {
			return nil, err
		}
		key, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBracket); err != nil {
			return nil, err
		}
		if _, err := p.expect(Assign); err != nil {
			return nil, err
		}
		value, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		return &Field{Key: key, Value: value}, nil
	}
	value, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &Field{Value: value}, nil
}

// funcBody parses "(params) block end". Method bodies get an implicit self.
func (p *parser) funcBody(start Pos, method bool) (*FunctionExpr, error) {
	fn := &FunctionExpr{At: start}
	if method {
		fn.Params = append(fn.Params, &Ident{At: start, Name: "self"})
	}
	open := p.tok.Pos
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	if p.tok.Kind != RParen {
		for {
			if p.tok.Kind == Dots {
				fn.IsVararg = true
				if err := p.next(); err != nil {
					return nil, err
				}
				break
			}
			id, err := p.ident()
			if err != nil {
				return nil, p.errorNear("<name> expected")
			}
			fn.Params = append(fn.Params, id)
			if ok, err := p.accept(Comma); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
	}
	if err := p.expectMatch(RParen, LParen, open); err != nil {
		return nil, err
	}
	body, err := p.blockUntil(End, Function, start)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}
