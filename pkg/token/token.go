// Package token defines the token vocabulary the lexer produces and the
// parser consumes.
package token

import "github.com/nordtektiger/qvickbuild/pkg/diag"

// Kind identifies the shape of a Token.
type Kind int

const (
	// Identifier is a bare name: [A-Za-z0-9_-]+, minus the keywords below.
	Identifier Kind = iota
	// Literal is a double-quoted string with its escapes already resolved,
	// holding no nested expression.
	Literal
	// FormattedLiteral is a double-quoted string containing at least one
	// escaped expression ("[...]"); Sub holds a Literal token for each plain
	// run and the tokens produced by re-lexing each escape.
	FormattedLiteral

	Equal     // =
	Colon     // :
	Semicolon // ;
	Arrow     // ->
	As        // as
	Comma     // ,
	LBracket  // [
	RBracket  // ]
	LBrace    // {
	RBrace    // }
	True      // true
	False     // false
	EOF
)

var kindNames = [...]string{
	Identifier:       "identifier",
	Literal:          "literal",
	FormattedLiteral: "formatted literal",
	Equal:            "'='",
	Colon:            "':'",
	Semicolon:        "';'",
	Arrow:            "'->'",
	As:               "'as'",
	Comma:            "','",
	LBracket:         "'['",
	RBracket:         "']'",
	LBrace:           "'{'",
	RBrace:           "'}'",
	True:             "'true'",
	False:            "'false'",
	EOF:              "end of input",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown token"
	}
	return kindNames[k]
}

// Token is one lexical unit with its source reference. Text holds the
// identifier name or the resolved literal bytes; Sub holds the substream of
// a FormattedLiteral (Literal tokens for the plain runs and the tokens of
// each escaped expression, in source order). Every other field is zero for kinds that don't use it.
type Token struct {
	Kind Kind
	Text string
	Sub  []Token
	diag.Ranging
}

// Is reports whether t has the given kind, a small readability helper used
// throughout the parser's predictive lookahead.
func (t Token) Is(k Kind) bool { return t.Kind == k }
