package util

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "  Allen   Solly  ", want: "ALLEN SOLLY"},
		{input: `"Premium" hang-tag`, want: "PREMIUM HANG-TAG"},
		{input: "ＴＢＡＭＴＡＧ４５０７", want: "TBAMTAG4507"},
		{input: "100×50", want: "100X50"},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.input); got != tc.want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestLooksLikeCode(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{input: "TBAMTAG4507", want: true},
		{input: "AS-001", want: true},
		{input: "black cotton tag", want: false},
		{input: "12", want: false},
		{input: "tag", want: false},
	}
	for _, tc := range cases {
		if got := LooksLikeCode(tc.input); got != tc.want {
			t.Fatalf("LooksLikeCode(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestDiceCoefficient(t *testing.T) {
	if DiceCoefficient("ABCD", "ABCD") != 1 {
		t.Fatal("identical strings must score 1")
	}
	if DiceCoefficient("ABCD", "") != 0 {
		t.Fatal("empty string must score 0")
	}
	near := DiceCoefficient("SYMBOL HAND TAG", "SYMBOL HANG TAG")
	far := DiceCoefficient("SYMBOL HAND TAG", "VAN HEUSEN STICKER")
	if near <= far {
		t.Fatalf("expected near=%v > far=%v", near, far)
	}
}
