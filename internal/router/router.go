package router

import (
	"net/http"

	"github.com/delicias-restaurant/api/internal/config"
	"github.com/delicias-restaurant/api/internal/database"
	"github.com/delicias-restaurant/api/internal/handler"
	mw "github.com/delicias-restaurant/api/internal/middleware"
	"github.com/delicias-restaurant/api/internal/rbac"
	"github.com/delicias-restaurant/api/internal/service"
	"github.com/delicias-restaurant/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up. Role
// middleware per route group is derived from the rbac permission table
// so the HTTP layer and the service layer can never disagree on who may
// reach an endpoint.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	transitionService := service.NewTransitionService(pool, func(db database.DBTX) service.TransitionStore {
		return database.New(db)
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	productHandler := handler.NewProductHandler(queries, hub)
	orderHandler := handler.NewOrderHandler(orderService, transitionService, queries, hub)
	tableHandler := handler.NewTableHandler(queries, hub)
	reservationHandler := handler.NewReservationHandler(queries)
	userHandler := handler.NewUserHandler(queries)
	reportHandler := handler.NewReportHandler(queries)

	r.Route("/api", func(r chi.Router) {
		// Public routes: browsing the menu and tables, booking, auth.
		authHandler.RegisterRoutes(r)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionManageMenu)...))
				productHandler.RegisterAdminRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionToggleAvailability)...))
				productHandler.RegisterAvailabilityRoute(r)
			})
		})
		r.Route("/tables", func(r chi.Router) {
			tableHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionFreeTable)...))
				tableHandler.RegisterStaffRoutes(r)
			})
		})
		r.Route("/reservations", func(r chi.Router) {
			reservationHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionManageReservations)...))
				reservationHandler.RegisterAdminRoutes(r)
			})
		})

		// Authenticated routes. Orders carry their own role checks in
		// the transition service.
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			authHandler.RegisterProtectedRoutes(r)

			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(rbac.Roles(rbac.ActionViewAllOrders)...))
					orderHandler.RegisterStaffRoutes(r)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionManageUsers)...))
				r.Route("/users", userHandler.RegisterRoutes)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(rbac.Roles(rbac.ActionViewReports)...))
				r.Route("/reports", reportHandler.RegisterRoutes)
			})
		})
	})

	return r
}
