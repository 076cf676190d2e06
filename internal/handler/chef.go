package handler

import (
	"context"
	"net/http"

	"github.com/autodine/autodine/internal/api"
	"github.com/go-chi/chi/v5"
)

// ChefServicer defines the store methods behind the kitchen controls.
type ChefServicer interface {
	Accept(ctx context.Context, orderID int) error
	Decline(ctx context.Context, orderID int) error
	MarkPrepared(ctx context.Context, orderID int) error
	VerifyPayment(ctx context.Context, tableID int) error
}

// ChefHandler handles the kitchen dashboard actions.
type ChefHandler struct {
	svc ChefServicer
}

// NewChefHandler creates a new ChefHandler.
func NewChefHandler(svc ChefServicer) *ChefHandler {
	return &ChefHandler{svc: svc}
}

// RegisterRoutes registers chef endpoints. Expected to be mounted at /api/chef.
func (h *ChefHandler) RegisterRoutes(r chi.Router) {
	r.Post("/accept", h.orderAction("accept order", h.svc.Accept))
	r.Post("/decline", h.orderAction("decline order", h.svc.Decline))
	r.Post("/food_prepared", h.orderAction("mark prepared", h.svc.MarkPrepared))
	r.Post("/verify_payment", h.VerifyPayment)
}

// orderAction builds a handler for the {order_id} endpoints.
func (h *ChefHandler) orderAction(op string, fn func(context.Context, int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.OrderIDRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.OrderID <= 0 {
			writeFailure(w, http.StatusBadRequest, "order_id is required")
			return
		}
		if err := fn(r.Context(), req.OrderID); err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeOK(w)
	}
}

// VerifyPayment handles POST /api/chef/verify_payment.
func (h *ChefHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req api.TableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TableID <= 0 {
		writeFailure(w, http.StatusBadRequest, "table_id is required")
		return
	}
	if err := h.svc.VerifyPayment(r.Context(), req.TableID); err != nil {
		writeServiceError(w, "verify payment", err)
		return
	}
	writeOK(w)
}
