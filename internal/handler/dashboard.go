package handler

import (
	"net/http"

	"github.com/autodine/autodine/internal/api"
	"github.com/autodine/autodine/internal/menu"
	"github.com/autodine/autodine/internal/service"
	"github.com/go-chi/chi/v5"
)

// TableLister lists table views for the dashboard.
type TableLister interface {
	Tables() []service.TableView
}

// DashboardHandler serves the read-only views used by the chef dashboard
// and the terminals.
type DashboardHandler struct {
	tables  TableLister
	catalog menu.Catalog
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(tables TableLister, catalog menu.Catalog) *DashboardHandler {
	return &DashboardHandler{tables: tables, catalog: catalog}
}

// RegisterRoutes registers dashboard endpoints under /api.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/tables", h.Tables)
	r.Get("/menu", h.Menu)
}

// Tables handles GET /api/dashboard/tables.
func (h *DashboardHandler) Tables(w http.ResponseWriter, r *http.Request) {
	views := h.tables.Tables()
	resp := make([]api.DashboardTable, len(views))
	for i, v := range views {
		resp[i] = v.Dashboard()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Menu handles GET /api/menu.
func (h *DashboardHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items := h.catalog
	if items == nil {
		items = menu.Catalog{}
	}
	writeJSON(w, http.StatusOK, items)
}
