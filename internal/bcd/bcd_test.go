package bcd

import "testing"

func TestNewAndString(t *testing.T) {
	tests := []struct {
		name     string
		digits   string
		scale    int
		negative bool
		want     string
	}{
		{"zero", "0", 0, false, "0"},
		{"integer", "100", 0, false, "100"},
		{"negative integer", "100", 0, true, "-100"},
		{"leading zero suppressed", "007", 0, false, "7"},
		{"pure fraction", "5", 1, false, ".5"},
		{"pure fraction two digits", "25", 2, false, ".25"},
		{"mixed", "150", 1, false, "15.0"},
		{"negative fraction", "5", 1, true, "-.5"},
		{"long fraction", "1428571428", 10, false, ".1428571428"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.digits, tt.scale, tt.negative)
			if got := r.String(); got != tt.want {
				t.Errorf("New(%q, %d, %v).String() = %q, want %q", tt.digits, tt.scale, tt.negative, got, tt.want)
			}
		})
	}
}

func TestNewCanonicalizesNegativeZero(t *testing.T) {
	r := New("0", 0, true)
	if r.Negative() {
		t.Fatalf("New(0, negative=true) should canonicalize to positive sign")
	}
	if r.Sign() != 0 {
		t.Fatalf("Sign() = %d, want 0", r.Sign())
	}
}

func TestRecordLayout(t *testing.T) {
	r := New("5", 1, false)
	if r[offLen] != MaxDigits {
		t.Fatalf("length byte = %d, want %d", r[offLen], MaxDigits)
	}
	if r[offScale] != 1 {
		t.Fatalf("scale byte = %d, want 1", r[offScale])
	}
	if len(r) != Size {
		t.Fatalf("len(Record) = %d, want %d", len(r), Size)
	}
}

func TestNeg(t *testing.T) {
	r := New("5", 0, false)
	neg := r.Neg()
	if !neg.Negative() {
		t.Fatalf("Neg() did not flip sign")
	}
	if neg.Neg().Negative() {
		t.Fatalf("Neg().Neg() should restore original sign")
	}
	if Zero.Neg() != Zero {
		t.Fatalf("Neg() of zero must stay canonical zero")
	}
}

func TestDigitsTruncatesOverflow(t *testing.T) {
	over := ""
	for i := 0; i < MaxDigits+3; i++ {
		over += "9"
	}
	r := New(over, 0, false)
	if len(r.Digits()) != MaxDigits {
		t.Fatalf("Digits() length = %d, want %d", len(r.Digits()), MaxDigits)
	}
}
