package service

import (
	"testing"

	"github.com/autodine/autodine/internal/menu"
	"github.com/shopspring/decimal"
)

func TestComputeBill_Rounding(t *testing.T) {
	rate := decimal.RequireFromString("0.18")
	tests := []struct {
		subtotal int64
		gst      int64
	}{
		{0, 0},
		{250, 45},
		{20, 4},  // 3.6
		{25, 5},  // 4.5 rounds away from zero
		{60, 11}, // 10.8
		{1000, 180},
	}
	for _, tt := range tests {
		b := ComputeBill(nil, tt.subtotal, rate)
		if b.GST != tt.gst {
			t.Errorf("subtotal %d: gst got %d, want %d", tt.subtotal, b.GST, tt.gst)
		}
		if b.GrandTotal != tt.subtotal+tt.gst {
			t.Errorf("subtotal %d: grand total got %d", tt.subtotal, b.GrandTotal)
		}
	}
}

func TestComputeBill_Items(t *testing.T) {
	lines := []menu.Line{
		{ItemID: 1, Name: "Roti", UnitPrice: 20, Quantity: 3},
		{ItemID: 2, Name: "Dal Makhani", UnitPrice: 180, Quantity: 1},
	}
	b := ComputeBill(lines, 240, decimal.RequireFromString("0.18"))
	if len(b.Items) != 2 {
		t.Fatalf("items: got %d", len(b.Items))
	}
	if b.Items[0].Subtotal != 60 || b.Items[0].Qty != 3 || b.Items[0].Price != 20 {
		t.Errorf("item 0: got %+v", b.Items[0])
	}
}

func TestTaxRateFromPercent(t *testing.T) {
	r, err := TaxRateFromPercent("18")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(decimal.RequireFromString("0.18")) {
		t.Errorf("rate: got %s", r)
	}
	if _, err := TaxRateFromPercent("abc"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := TaxRateFromPercent("-5"); err == nil {
		t.Error("expected negative error")
	}
}
