// Package lex turns configuration source bytes into a token stream. It
// never inspects grammar beyond what a single token needs; deciding whether
// a sequence of tokens forms a valid field, task or expression is the
// parser's job.
package lex

import (
	"strings"

	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
	"github.com/nordtektiger/qvickbuild/pkg/token"
)

// punct is one fixed-text punctuation or keyword rule, tried in the order
// given by punctRules. Longer prefixes (like "->") must precede any prefix
// of themselves, so "-" never needs its own rule: it only ever appears as
// part of an identifier or as the first byte of "->".
type punct struct {
	text string
	kind token.Kind
}

var punctRules = []punct{
	{"->", token.Arrow},
	{"=", token.Equal},
	{":", token.Colon},
	{";", token.Semicolon},
	{",", token.Comma},
	{"[", token.LBracket},
	{"]", token.RBracket},
	{"{", token.LBrace},
	{"}", token.RBrace},
}

var keywords = map[string]token.Kind{
	"as":    token.As,
	"true":  token.True,
	"false": token.False,
}

const eof byte = 0

// lexer scans src byte by byte. Identifiers and punctuation are pure ASCII
// in this grammar, so indexing by byte offset rather than decoding runes is
// both correct and simpler, mirroring how a hand-written recursive-descent
// scanner reads fixed syntax.
type lexer struct {
	name string
	src  string
	pos  int
}

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.src) {
		return eof
	}
	return lx.src[lx.pos]
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return eof
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) ctx(r diag.Ranging) *diag.Context {
	return diag.NewContext(lx.name, lx.src, r)
}

// Lex scans the entirety of src and returns its token stream along with any
// lexical errors encountered. It does not stop at the first error: each
// invalid byte is skipped and scanning resumes, so a single pass can report
// every lexical problem in the source, not just the first.
func Lex(name, src string) ([]token.Token, []*qerr.Error) {
	lx := &lexer{name: name, src: src}
	var toks []token.Token
	var errs []*qerr.Error

	for {
		lx.skipSpaceAndComments()
		if lx.pos >= len(lx.src) {
			break
		}
		tok, err := lx.next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		toks = append(toks, tok)
	}
	return toks, errs
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

// next scans exactly one token, or returns the error describing the
// invalid input it met. An invalid symbol is skipped as one byte; a literal
// with an invalid escape code is skipped through its closing quote.
func (lx *lexer) next() (token.Token, *qerr.Error) {
	begin := lx.pos

	for _, p := range punctRules {
		if strings.HasPrefix(lx.src[lx.pos:], p.text) {
			lx.pos += len(p.text)
			return token.Token{Kind: p.kind, Ranging: diag.Ranging{From: begin, To: lx.pos}}, nil
		}
	}

	if lx.peek() == '"' {
		return lx.lexLiteral()
	}

	if isIdentByte(lx.peek()) {
		return lx.lexIdentifier()
	}

	lx.pos++
	return token.Token{}, qerr.ErrInvalidSymbol(lx.ctx(diag.Ranging{From: begin, To: lx.pos}), lx.src[begin])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func (lx *lexer) lexIdentifier() (token.Token, *qerr.Error) {
	begin := lx.pos
	for isIdentByte(lx.peek()) {
		lx.pos++
	}
	text := lx.src[begin:lx.pos]
	r := diag.Ranging{From: begin, To: lx.pos}
	if kind, ok := keywords[text]; ok {
		return token.Token{Kind: kind, Text: text, Ranging: r}, nil
	}
	return token.Token{Kind: token.Identifier, Text: text, Ranging: r}, nil
}

// escapes maps the byte following a backslash to its resolved value, per
// the closed escape table in the configuration grammar.
var escapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"', '[': '[', ']': ']',
}

// lexLiteral scans a double-quoted string. It returns a plain Literal token
// when the content holds no escaped expression, or a FormattedLiteral token
// when it holds at least one "[...]" escape; its Sub stream holds a Literal
// token for each plain run and the tokens of each escaped expression, in
// source order.
func (lx *lexer) lexLiteral() (token.Token, *qerr.Error) {
	begin := lx.pos
	lx.pos++ // opening quote

	var plain strings.Builder
	var sub []token.Token
	hasExpr := false
	runStart := lx.pos

	flushPlain := func(end int) {
		if end > runStart {
			plain.WriteString(lx.src[runStart:end])
		}
	}

	for {
		if lx.pos >= len(lx.src) {
			return token.Token{}, qerr.ErrInvalidLiteral(lx.ctx(diag.Ranging{From: begin, To: lx.pos}))
		}
		c := lx.src[lx.pos]
		switch {
		case c == '"':
			flushPlain(lx.pos)
			lx.pos++
			return lx.finishLiteral(begin, plain.String(), sub, hasExpr)
		case c == '\\':
			flushPlain(lx.pos)
			escPos := lx.pos
			lx.pos++
			if lx.pos >= len(lx.src) {
				return token.Token{}, qerr.ErrInvalidLiteral(lx.ctx(diag.Ranging{From: begin, To: lx.pos}))
			}
			code := lx.src[lx.pos]
			resolved, ok := escapes[code]
			if !ok {
				lx.pos++
				errCtx := lx.ctx(diag.Ranging{From: escPos, To: lx.pos})
				// Skip the rest of the literal so scanning resumes after
				// its closing quote rather than inside it.
				for lx.pos < len(lx.src) && lx.src[lx.pos] != '"' {
					if lx.src[lx.pos] == '\\' {
						lx.pos++
					}
					lx.pos++
				}
				if lx.pos < len(lx.src) {
					lx.pos++
				}
				return token.Token{}, qerr.ErrInvalidEscapeCode(errCtx, code)
			}
			plain.WriteByte(resolved)
			lx.pos++
			runStart = lx.pos
		case c == '[':
			flushPlain(lx.pos)
			if plain.Len() > 0 {
				sub = append(sub, token.Token{Kind: token.Literal, Text: plain.String()})
				plain.Reset()
			}
			hasExpr = true
			exprToks, err := lx.lexEscapedExpression()
			if err != nil {
				return token.Token{}, err
			}
			sub = append(sub, exprToks...)
			runStart = lx.pos
		default:
			lx.pos++
		}
	}
}

func (lx *lexer) finishLiteral(begin int, plain string, sub []token.Token, hasExpr bool) (token.Token, *qerr.Error) {
	r := diag.Ranging{From: begin, To: lx.pos}
	if !hasExpr {
		return token.Token{Kind: token.Literal, Text: plain, Ranging: r}, nil
	}
	if plain != "" {
		sub = append(sub, token.Token{Kind: token.Literal, Text: plain})
	}
	return token.Token{Kind: token.FormattedLiteral, Sub: sub, Ranging: r}, nil
}

// lexEscapedExpression scans a "[...]" escape using the reduced alphabet:
// ':', '->', ',' and identifiers only. It returns the identifier/punctuation
// tokens found inside, not including the brackets themselves.
func (lx *lexer) lexEscapedExpression() ([]token.Token, *qerr.Error) {
	begin := lx.pos
	lx.pos++ // '['

	var toks []token.Token
	for {
		for lx.peek() == ' ' || lx.peek() == '\t' {
			lx.pos++
		}
		switch {
		case lx.pos >= len(lx.src):
			return nil, qerr.ErrInvalidEscapedExpression(lx.ctx(diag.Ranging{From: begin, To: lx.pos}))
		case lx.peek() == ']':
			lx.pos++
			return toks, nil
		case lx.peek() == ':':
			start := lx.pos
			lx.pos++
			toks = append(toks, token.Token{Kind: token.Colon, Ranging: diag.Ranging{From: start, To: lx.pos}})
		case lx.peek() == '-' && lx.peekAt(1) == '>':
			start := lx.pos
			lx.pos += 2
			toks = append(toks, token.Token{Kind: token.Arrow, Ranging: diag.Ranging{From: start, To: lx.pos}})
		case lx.peek() == ',':
			start := lx.pos
			lx.pos++
			toks = append(toks, token.Token{Kind: token.Comma, Ranging: diag.Ranging{From: start, To: lx.pos}})
		case isIdentByte(lx.peek()):
			start := lx.pos
			for isIdentByte(lx.peek()) {
				lx.pos++
			}
			toks = append(toks, token.Token{
				Kind: token.Identifier, Text: lx.src[start:lx.pos],
				Ranging: diag.Ranging{From: start, To: lx.pos},
			})
		default:
			return nil, qerr.ErrInvalidEscapedExpression(lx.ctx(diag.Ranging{From: begin, To: lx.pos + 1}))
		}
	}
}
