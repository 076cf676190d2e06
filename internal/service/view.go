package service

import "github.com/autodine/autodine/internal/api"

// Dashboard renders the view the chef dashboard lists for a table.
func (v TableView) Dashboard() api.DashboardTable {
	d := api.DashboardTable{
		TableID:       v.ID,
		Status:        v.Status,
		OrderState:    v.OrderState,
		OrderID:       v.CurrentOrderID,
		PaymentMethod: v.PaymentMethod,
	}
	if v.Order != nil {
		d.Items = make([]api.DashboardItem, len(v.Order.Lines))
		for i, l := range v.Order.Lines {
			d.Items[i] = api.DashboardItem{Name: l.Name, Qty: l.Quantity, Price: l.UnitPrice}
		}
		total := v.Order.Total
		d.Total = &total
	}
	if v.Bill != "" {
		bill := v.Bill
		d.BillData = &bill
	}
	return d
}

// StatusResponse renders the table status a terminal polls for.
func (t Table) StatusResponse() api.TableStatus {
	s := api.TableStatus{
		TableID:    t.ID,
		Status:     t.Status,
		OrderState: t.OrderState,
	}
	if t.Bill != "" {
		bill := t.Bill
		s.BillData = &bill
	}
	return s
}
