package sheets

import "testing"

func TestColumnLetters(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 7: "H", 9: "J", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for idx, want := range cases {
		if got := ColumnLetter(idx); got != want {
			t.Fatalf("ColumnLetter(%d) = %s, want %s", idx, got, want)
		}
		if got := ColumnIndex(want); got != idx {
			t.Fatalf("ColumnIndex(%s) = %d, want %d", want, got, idx)
		}
	}
	if ColumnIndex("") != -1 || ColumnIndex("A1") != -1 {
		t.Fatalf("expected -1 for invalid letters")
	}
}

func TestColorRoundTrip(t *testing.T) {
	c, err := ParseColor("#F4cccc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hex() != "#f4cccc" {
		t.Fatalf("got %s", c.Hex())
	}
	r, g, b := c.Unit()
	if ColorFromUnit(r, g, b) != c {
		t.Fatalf("unit conversion is not lossless for %s", c)
	}
	if ColorFromUnit(1, 1, 1) != White {
		t.Fatalf("expected white")
	}
	for _, bad := range []string{"", "#fff", "#gggggg", "1234567"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{0: "0", -42: "-42", 12.5: "12.5", 1000000: "1000000"}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestEmptyCell(t *testing.T) {
	c := Empty()
	if !c.IsEmpty() || c.Background != nil || c.Bold {
		t.Fatalf("expected a blank cell, got %+v", c)
	}
	if Text("x").IsEmpty() {
		t.Fatalf("text cell reported empty")
	}
}
