package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autodine/autodine/internal/config"
	"github.com/autodine/autodine/internal/handler"
	"github.com/autodine/autodine/internal/menu"
	mw "github.com/autodine/autodine/internal/middleware"
	"github.com/autodine/autodine/internal/service"
	"github.com/autodine/autodine/internal/ws"
)

// New creates a Chi router with all host routes wired up.
// Terminal routes live directly under /api, chef routes under /api/chef.
func New(cfg *config.Config, svc *service.OrderService, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mw.Metrics)

	// CORS configuration (chef dashboard in a browser)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Dashboard feed
	r.Method(http.MethodGet, "/ws/dashboard", ws.NewHandler(hub, cfg.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.LimitBody(mw.MaxBodyBytes))

		// Table terminals
		orderHandler := handler.NewOrderHandler(svc)
		orderHandler.RegisterRoutes(r)

		// Chef dashboard
		dashboardHandler := handler.NewDashboardHandler(svc, menu.Default)
		dashboardHandler.RegisterRoutes(r)

		chefHandler := handler.NewChefHandler(svc)
		r.Route("/chef", chefHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
