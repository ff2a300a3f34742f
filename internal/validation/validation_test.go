package validation

import (
	"math"
	"testing"
)

func TestValidateAmount(t *testing.T) {
	valid := []float64{0.01, 1, 12.50, 99999.99}
	for _, amount := range valid {
		if err := ValidateAmount(amount); err != nil {
			t.Errorf("amount %v: expected valid, got %v", amount, err)
		}
	}

	invalid := []float64{0, -0.01, -5, math.NaN(), math.Inf(1), math.Inf(-1), 100_001}
	for _, amount := range invalid {
		if err := ValidateAmount(amount); err == nil {
			t.Errorf("amount %v: expected error", amount)
		}
	}
}

func TestValidateCustomerName(t *testing.T) {
	if err := ValidateCustomerName("Maria Popescu"); err != nil {
		t.Errorf("Expected valid name, got %v", err)
	}

	if err := ValidateCustomerName(""); err == nil {
		t.Error("Expected error for empty name")
	}

	long := make([]byte, MaxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateCustomerName(string(long)); err == nil {
		t.Error("Expected error for oversized name")
	}
}

func TestValidateReward(t *testing.T) {
	if err := ValidateReward("Cappuccino", 100); err != nil {
		t.Errorf("Expected valid reward, got %v", err)
	}

	if err := ValidateReward("", 100); err == nil {
		t.Error("Expected error for empty reward name")
	}

	if err := ValidateReward("Cappuccino", 0); err == nil {
		t.Error("Expected error for non-positive cost")
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"he\x00llo", "hello"},
		{"plain", "plain"},
	}

	for _, tc := range cases {
		if got := SanitizeString(tc.in); got != tc.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateUUID(t *testing.T) {
	if err := ValidateUUID("9b2a1f6e-1111-4222-8333-444455556666", "id"); err != nil {
		t.Errorf("Expected valid UUID, got %v", err)
	}

	for _, id := range []string{"", "not-a-uuid", "9b2a1f6e-1111-1222-8333-444455556666"} {
		if err := ValidateUUID(id, "id"); err == nil {
			t.Errorf("id %q: expected error", id)
		}
	}
}
