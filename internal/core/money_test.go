package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"4.75", 475, true},
		{"4,75", 475, true},
		{"0.01", 1, true},
		{"0", 0, true}, // whole purchases are valid, they just round up to zero
		{"10.00", 1000, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{25, "0.25"},
		{475, "4.75"},
		{500000, "5000.00"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := Cents(tc.cents).String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Cents(475)
	b := Cents(25)
	if got := a.Add(b); got.Cents != 500 {
		t.Fatalf("expected 500, got %d", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -450 || !got.IsNegative() {
		t.Fatalf("expected -450 negative, got %d", got.Cents)
	}
	if !Cents(0).IsZero() {
		t.Fatal("expected zero")
	}
}
