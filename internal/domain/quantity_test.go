package domain

import (
	"encoding/json"
	"testing"
)

func TestNewQuantity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"integer", "10", "10", false},
		{"one decimal place", "0.5", "0.5", false},
		{"quarter", "0.25", "0.25", false},
		{"tenth", "0.1", "0.1", false},
		{"many decimal places", "0.000000001", "0.000000001", false},
		{"garbage", "ten", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewQuantity(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewQuantity(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewQuantity(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("NewQuantity(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuantity_ExactArithmetic(t *testing.T) {
	// 0.1 + 0.2 is exactly 0.3, unlike float64.
	sum := MustQuantity("0.1").Add(MustQuantity("0.2"))
	if !sum.Equal(MustQuantity("0.3")) {
		t.Errorf("0.1 + 0.2 = %s, want 0.3", sum)
	}

	rem := MustQuantity("10").Sub(MustQuantity("5")).Sub(MustQuantity("0.5")).Sub(MustQuantity("0.25")).Sub(MustQuantity("0.1"))
	if !rem.Equal(MustQuantity("4.15")) {
		t.Errorf("remaining = %s, want 4.15", rem)
	}
}

func TestQuantity_Min(t *testing.T) {
	a, b := MustQuantity("1"), MustQuantity("0.75")
	if !a.Min(b).Equal(b) || !b.Min(a).Equal(b) {
		t.Error("Min should return the smaller quantity")
	}
}

func TestQuantity_CmpAndSign(t *testing.T) {
	if MustQuantity("1").Cmp(MustQuantity("2")) != -1 {
		t.Error("1 should compare below 2")
	}
	if !MustQuantity("1.0").Equal(QuantityFromInt(1)) {
		t.Error("1.0 should equal 1")
	}
	if !MustQuantity("-1").IsNegative() || MustQuantity("0").IsPositive() {
		t.Error("sign helpers disagree with value")
	}
}

func TestQuantity_JSONKeepsPrecision(t *testing.T) {
	b, err := json.Marshal(MustQuantity("0.1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"0.1"` {
		t.Errorf("marshal = %s, want \"0.1\"", b)
	}

	var q Quantity
	if err := json.Unmarshal([]byte(`"2.50"`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !q.Equal(MustQuantity("2.5")) {
		t.Errorf("unmarshal = %s, want 2.5", q)
	}
}

func TestPrice_ZeroPrice(t *testing.T) {
	if !ZeroPrice.IsZero() {
		t.Error("ZeroPrice should be zero")
	}
	if !MustPrice("0.00").Equal(ZeroPrice) {
		t.Error("0.00 should equal ZeroPrice")
	}
	if _, err := NewPrice("abc"); err == nil {
		t.Error("NewPrice should reject malformed input")
	}
}
