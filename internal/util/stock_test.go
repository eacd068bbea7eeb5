package util

import "testing"

func TestParseStockNullTokens(t *testing.T) {
	for _, input := range []any{"NILL", "NIL", "NULL", "NA", "N/A", "-", "", nil, "garbage", "  nil  "} {
		if got := ParseStock(input); got != 0 {
			t.Fatalf("ParseStock(%v) = %d, want 0", input, got)
		}
	}
}

func TestParseStockNumbers(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  int
	}{
		{name: "plain int", input: 100, want: 100},
		{name: "comma thousands", input: "1,500", want: 1500},
		{name: "dot thousands", input: "1.500", want: 1500},
		{name: "space thousands", input: "1 500", want: 1500},
		{name: "float cell", input: 42.0, want: 42},
		{name: "negative clamps", input: "-5", want: 0},
		{name: "padded", input: " 37 ", want: 37},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseStock(tc.input); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}
