package minting

import "testing"

func TestDeriveSymbol(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Foo Bar Meme", "FBM"},
		{"Doge Cat Hybrid Super Max", "DCHSM"},
		{"One Two Three Four Five Six", "OTTFF"}, // capped at 5
		{"Doge", "DOG"},
		{"ox", "OX"},
		{"vibe-coin", "VC"}, // punctuation splits words
		{"  spaced   out  ", "SO"},
		{"Coin 42", "C4"},
		{"", "VIBE"},
		{"!!!", "VIBE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSymbol(tt.name); got != tt.want {
				t.Errorf("DeriveSymbol(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestDeriveSymbolDeterministic(t *testing.T) {
	a := DeriveSymbol("Foo Bar Meme")
	b := DeriveSymbol("Foo Bar Meme")
	if a != b {
		t.Errorf("DeriveSymbol not deterministic: %q vs %q", a, b)
	}
}
