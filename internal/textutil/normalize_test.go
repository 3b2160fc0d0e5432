package textutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme LLC", "acme llc"},
		{"  Acme,   L.L.C.  ", "acme llc"},
		{"Acme Holdings (Delaware) Inc.", "acme holdings inc"},
		{"Beta\tCorp\n", "beta corp"},
		{"Café Société", "cafe societe"},
		{"Acme(DE)Inc", "acme inc"},
		{"((nested) name)", "name"},
		{"(only parenthetical)", ""},
		{"", ""},
		{"R&D 42, Ltd", "rd 42 ltd"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Acme LLC",
		"Beta Corp Services (old)",
		"((a)b)c",
		"  ÅÉÎ  õü  ",
		"x(y",
		"x)y(z)",
		"日本 Corp",
		"tab\tand nbsp",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLettersInCommon(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Beta Corp", "Beta Corp Services", 8},
		{"Beta Corp", "Beta Corporation Inc", 8},
		{"aaa", "AAA", 1},
		{"abc", "xyz", 0},
		{"123", "123", 0},
	}
	for _, tt := range tests {
		if got := LettersInCommon(tt.a, tt.b); got != tt.want {
			t.Errorf("LettersInCommon(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
