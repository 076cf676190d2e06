package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/menu"
	"github.com/autodine/autodine/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderServicer defines the store methods needed by the terminal-facing
// endpoints. Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Submit(ctx context.Context, tableID int, cart menu.Cart) (int, error)
	GenerateBill(ctx context.Context, tableID int) error
	SetPaymentMethod(ctx context.Context, tableID int, method string) error
	Table(tableID int) (service.Table, error)
}

// OrderHandler serves the table terminals.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers terminal endpoints on the given Chi router.
// Expected to be mounted under /api.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/order", h.Submit)
	r.Get("/table_status", h.TableStatus)
	r.Post("/request_bill", h.RequestBill)
	r.Post("/payment", h.Payment)
}

// --- Handlers ---

// Submit handles POST /api/order.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.TableID <= 0 {
		writeFailure(w, http.StatusBadRequest, "table_id is required")
		return
	}
	if len(req.Items) == 0 {
		writeFailure(w, http.StatusBadRequest, "items are required")
		return
	}

	lines := req.Lines()
	cart := menu.NewCart(len(lines))
	var sum int64
	for i, l := range lines {
		if msg := validateLine(l); msg != "" {
			writeFailure(w, http.StatusBadRequest, formatItemError(i, msg))
			return
		}
		sum += l.Subtotal()
		cart.AddLine(l)
	}
	if sum != req.Total {
		writeFailure(w, http.StatusBadRequest, "total does not match items")
		return
	}

	orderID, err := h.svc.Submit(r.Context(), req.TableID, cart)
	if err != nil {
		writeServiceError(w, "submit order", err)
		return
	}
	log.Printf("order %d received from table %d (append=%v)", orderID, req.TableID, req.Append)
	writeOK(w)
}

// TableStatus handles GET /api/table_status?table_id=N.
func (h *OrderHandler) TableStatus(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.Atoi(r.URL.Query().Get("table_id"))
	if err != nil || tableID <= 0 {
		writeFailure(w, http.StatusBadRequest, "invalid table_id")
		return
	}
	t, err := h.svc.Table(tableID)
	if err != nil {
		writeServiceError(w, "table status", err)
		return
	}
	writeJSON(w, http.StatusOK, t.StatusResponse())
}

// RequestBill handles POST /api/request_bill.
func (h *OrderHandler) RequestBill(w http.ResponseWriter, r *http.Request) {
	var req api.TableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TableID <= 0 {
		writeFailure(w, http.StatusBadRequest, "table_id is required")
		return
	}
	if err := h.svc.GenerateBill(r.Context(), req.TableID); err != nil {
		writeServiceError(w, "request bill", err)
		return
	}
	writeOK(w)
}

// Payment handles POST /api/payment.
func (h *OrderHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var req api.PaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TableID <= 0 {
		writeFailure(w, http.StatusBadRequest, "table_id is required")
		return
	}
	if req.Method == "" {
		writeFailure(w, http.StatusBadRequest, "method is required")
		return
	}
	if err := h.svc.SetPaymentMethod(r.Context(), req.TableID, req.Method); err != nil {
		writeServiceError(w, "set payment method", err)
		return
	}
	writeOK(w)
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func validateLine(l menu.Line) string {
	switch {
	case l.ItemID <= 0:
		return "id must be > 0"
	case l.Name == "":
		return "name is required"
	case l.UnitPrice < 0:
		return "price must be >= 0"
	case l.Quantity <= 0:
		return "qty must be > 0"
	}
	return ""
}
