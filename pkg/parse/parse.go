// Package parse implements the recursive-descent parser: configuration
// source text to an ast.Ast. It drives pkg/lex internally, so callers hand
// it raw source bytes and a name for diagnostics, not a pre-built token
// stream.
package parse

import (
	"github.com/nordtektiger/qvickbuild/pkg/ast"
	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/lex"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
	"github.com/nordtektiger/qvickbuild/pkg/token"
)

// Parse lexes and parses src, returning the resulting Ast. Syntactic
// errors halt parsing immediately and are returned as the error; there is
// at most one, since continuing to parse past a broken construct produces
// no reliable further diagnostics.
func Parse(name, src string) (*ast.Ast, error) {
	toks, lexErrs := lex.Lex(name, src)
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	p := &parser{name: name, src: src, toks: toks}
	a := &ast.Ast{}
	for p.peek().Kind != token.EOF {
		if p.peek().Kind == token.Identifier && p.peekAt(1).Kind == token.Equal {
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			if !a.AddGlobalField(f) {
				return nil, qerr.ErrDuplicateIdentifier(p.ctx(f.Ranging), f.Name)
			}
			continue
		}
		t, err := p.parseTask()
		if err != nil {
			return nil, err
		}
		a.AddTask(t)
	}
	return a, nil
}

type parser struct {
	name string
	src  string
	toks []token.Token
	pos  int
}

func (p *parser) peek() token.Token { return p.peekAt(0) }

func (p *parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		end := len(p.src)
		return token.Token{Kind: token.EOF, Ranging: diag.Ranging{From: end, To: end}}
	}
	return p.toks[i]
}

func (p *parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) ctx(r diag.Ranging) *diag.Context {
	return diag.NewContext(p.name, p.src, r)
}

func (p *parser) parseField() (*ast.Field, *qerr.Error) {
	nameTok := p.next()
	p.next() // '='
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.Semicolon {
		return nil, qerr.ErrNoLinestop(p.ctx(p.peek().Ranging))
	}
	semi := p.next()
	return &ast.Field{
		Name: nameTok.Text, Expr: expr,
		Ranging: diag.Ranging{From: nameTok.From, To: semi.To},
	}, nil
}

func (p *parser) parseTask() (*ast.Task, *qerr.Error) {
	begin := p.peek().From
	keyExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	iterName := ast.DefaultIterator
	if p.peek().Kind == token.As {
		p.next()
		if p.peek().Kind != token.Identifier {
			return nil, qerr.ErrNoIterator(p.ctx(p.peek().Ranging))
		}
		iterName = p.next().Text
	}

	if p.peek().Kind != token.LBrace {
		return nil, qerr.ErrNoTaskOpen(p.ctx(p.peek().Ranging))
	}
	p.next()

	task := &ast.Task{IdentExpr: keyExpr, IteratorName: iterName}
	for {
		switch p.peek().Kind {
		case token.RBrace:
			end := p.next().To
			task.Ranging = diag.Ranging{From: begin, To: end}
			return task, nil
		case token.EOF:
			return nil, qerr.ErrNoTaskClose(p.ctx(p.peek().Ranging))
		case token.Identifier:
			if p.peekAt(1).Kind != token.Equal {
				return nil, qerr.ErrInvalidGrammar(p.ctx(p.peek().Ranging), "a field (name = value;)")
			}
			f, err := p.parseField()
			if err != nil {
				return nil, err
			}
			if !task.AddField(f) {
				return nil, qerr.ErrDuplicateIdentifier(p.ctx(f.Ranging), f.Name)
			}
		default:
			return nil, qerr.ErrInvalidGrammar(p.ctx(p.peek().Ranging), "a field or '}'")
		}
	}
}

func (p *parser) parseExpr() (ast.Expr, *qerr.Error) {
	return p.parseList()
}

// parseList implements `List ::= Replace (',' Expr)?`. Expr's right side is
// itself parsed as a full Expr (right-nested), so a three-element list like
// "a, b, c" parses as Replace(a), then recursing into "b, c"; the result is
// flattened into one List with three Items rather than nested two-element
// Lists, matching the data model's flat AstExpr.List(list of AstExpr).
func (p *parser) parseList() (ast.Expr, *qerr.Error) {
	first, err := p.parseReplace()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.Comma {
		return first, nil
	}
	p.next()
	rest, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	items := []ast.Expr{first}
	if restList, ok := rest.(ast.List); ok {
		items = append(items, restList.Items...)
	} else {
		items = append(items, rest)
	}
	return ast.List{Items: items, Ranging: diag.MixedRanging(first, rest)}, nil
}

// parseReplace implements `Replace ::= Primary (':' Primary '->' Primary)?`.
// If a ':' immediately follows with no preceding primary, the input slot is
// empty and that's reported as NoReplacementIdentifier rather than falling
// through to the generic EmptyExpression used at other primary positions,
// since the colon makes it clear a replace was intended.
func (p *parser) parseReplace() (ast.Expr, *qerr.Error) {
	if p.peek().Kind == token.Colon {
		return nil, qerr.ErrNoReplacementIdentifier(p.ctx(p.peek().Ranging))
	}
	input, err := p.parsePrimary(qerr.ErrEmptyExpression)
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.Colon {
		return input, nil
	}
	p.next()
	filter, err := p.parsePrimary(qerr.ErrNoReplacementOriginal)
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.Arrow {
		return nil, qerr.ErrNoReplacementArrow(p.ctx(p.peek().Ranging))
	}
	p.next()
	product, err := p.parsePrimary(qerr.ErrNoReplacementReplacement)
	if err != nil {
		return nil, err
	}
	return ast.Replace{
		Input: input, Filter: filter, Product: product,
		Ranging: diag.MixedRanging(input, product),
	}, nil
}

// parsePrimary parses one Primary. missing is called, with the context of
// the unexpected token, when no primary form matches; different call sites
// want different catalog kinds for the same syntactic shortfall.
func (p *parser) parsePrimary(missing func(*diag.Context) *qerr.Error) (ast.Expr, *qerr.Error) {
	tok := p.peek()
	switch tok.Kind {
	case token.Literal:
		p.next()
		return ast.Literal{Text: tok.Text, Ranging: tok.Ranging}, nil
	case token.Identifier:
		p.next()
		return ast.Identifier{Name: tok.Text, Ranging: tok.Ranging}, nil
	case token.True:
		p.next()
		return ast.Boolean{Value: true, Ranging: tok.Ranging}, nil
	case token.False:
		p.next()
		return ast.Boolean{Value: false, Ranging: tok.Ranging}, nil
	case token.FormattedLiteral:
		p.next()
		return formattedLiteral(tok), nil
	case token.LBracket:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != token.RBracket {
			return nil, qerr.ErrNoExpressionClose(p.ctx(p.peek().Ranging))
		}
		p.next()
		return inner, nil
	default:
		return nil, missing(p.ctx(tok.Ranging))
	}
}

func formattedLiteral(tok token.Token) ast.Expr {
	children := make([]ast.Expr, 0, len(tok.Sub))
	for _, s := range tok.Sub {
		switch s.Kind {
		case token.Literal:
			children = append(children, ast.Literal{Text: s.Text, Ranging: s.Ranging})
		case token.Identifier:
			children = append(children, ast.Identifier{Name: s.Text, Ranging: s.Ranging})
		}
	}
	return ast.FormattedLiteral{Children: children, Ranging: tok.Ranging}
}
