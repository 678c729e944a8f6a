package pricing

import "testing"

func TestUnitPriceClamp(t *testing.T) {
	cases := []struct {
		catalog, discount, want Money
	}{
		{Units(100), Units(10), Units(90)},
		{Units(100), Units(100), 0},
		{Units(100), Units(150), 0},
		{Units(100), -Units(5), Units(100)},
		{0, Units(5), 0},
	}
	for _, tc := range cases {
		if got := UnitPrice(tc.catalog, tc.discount); got != tc.want {
			t.Fatalf("UnitPrice(%s, %s) = %s, want %s", tc.catalog, tc.discount, got, tc.want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(Round2(19.99), 3); got != Round2(59.97) {
		t.Fatalf("expected 59.97, got %s", got)
	}
	if got := LineTotal(Units(5), 0); got != 0 {
		t.Fatalf("expected 0 for zero qty, got %s", got)
	}
}

func TestClampQty(t *testing.T) {
	cases := []struct{ req, avail, want int }{
		{3, 10, 3},
		{0, 10, 1},
		{-4, 10, 1},
		{11, 10, 10},
		{1, 0, 0},
		{5, -1, 0},
	}
	for _, tc := range cases {
		if got := ClampQty(tc.req, tc.avail); got != tc.want {
			t.Fatalf("ClampQty(%d, %d) = %d, want %d", tc.req, tc.avail, got, tc.want)
		}
	}
}

func TestDiscountStepTiers(t *testing.T) {
	cases := []struct {
		subtotal Money
		want     Money
	}{
		{Units(99), Units(5)},
		{Round2(99.99), Units(5)},
		{Units(100), Units(10)},
		{Units(999), Units(10)},
		{Round2(999.99), Units(10)},
		{Units(1000), Units(100)},
		{0, Units(5)},
	}
	for _, tc := range cases {
		if got := DiscountStep(tc.subtotal); got != tc.want {
			t.Fatalf("DiscountStep(%s) = %s, want %s", tc.subtotal, got, tc.want)
		}
	}
}

func TestStepDiscount(t *testing.T) {
	if got := StepDiscount(0, Units(1500), Units(150), true); got != Units(100) {
		t.Fatalf("expected 100.00, got %s", got)
	}
	if got := StepDiscount(Units(100), Units(1500), Units(150), true); got != Units(150) {
		t.Fatalf("expected clamp to 150.00, got %s", got)
	}
	if got := StepDiscount(Units(3), Units(50), Units(50), false); got != 0 {
		t.Fatalf("expected clamp to 0, got %s", got)
	}
}
