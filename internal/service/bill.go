package service

import (
	"encoding/json"
	"fmt"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/menu"
	"github.com/shopspring/decimal"
)

// TaxRateFromPercent converts a percentage string such as "18" or "12.5"
// into a rate.
func TaxRateFromPercent(pct string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(pct)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax percent %q: %w", pct, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax percent must not be negative: %s", pct)
	}
	return d.Div(decimal.NewFromInt(100)), nil
}

// ComputeBill itemizes lines and applies rate to subtotal. GST is rounded
// to whole currency units, half away from zero.
func ComputeBill(lines []menu.Line, subtotal int64, rate decimal.Decimal) api.Bill {
	items := make([]api.BillLine, len(lines))
	for i, l := range lines {
		items[i] = api.BillLine{
			Name:     l.Name,
			Qty:      l.Quantity,
			Price:    l.UnitPrice,
			Subtotal: l.Subtotal(),
		}
	}
	gst := decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
	return api.Bill{
		Items:      items,
		Subtotal:   subtotal,
		GST:        gst,
		GrandTotal: subtotal + gst,
	}
}

// EncodeBill serializes a bill into the snapshot string stored on a table.
func EncodeBill(b api.Bill) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encode bill: %w", err)
	}
	return string(data), nil
}
