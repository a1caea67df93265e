package token

import "testing"

func TestTokenIs(t *testing.T) {
	tok := Token{Kind: Arrow}
	if !tok.Is(Arrow) {
		t.Error("Is(Arrow) = false, want true")
	}
	if tok.Is(Comma) {
		t.Error("Is(Comma) = true, want false")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Identifier: "identifier",
		Arrow:      "'->'",
		EOF:        "end of input",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
