package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/noeralma/procure-flow-organize-sub000/internal/auth"
	"github.com/noeralma/procure-flow-organize-sub000/internal/pengadaan"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
	"github.com/noeralma/procure-flow-organize-sub000/internal/transport/middleware"
	"github.com/noeralma/procure-flow-organize-sub000/internal/transport/swagger"
	"github.com/noeralma/procure-flow-organize-sub000/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, userHandler *user.Handler, pengadaanHandler *pengadaan.Handler, permissionHandler *permission.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	roleAuth := auth.NewRoleAuthorization(logger)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				// Current user
				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
				}

				// Pengadaan routes
				if pengadaanHandler != nil {
					pr.Route("/pengadaan", func(er chi.Router) {
						er.Post("/", pengadaanHandler.CreatePengadaan)
						er.Get("/", pengadaanHandler.ListPengadaans)
						er.Get("/search", pengadaanHandler.SearchPengadaans)
						er.Get("/export", pengadaanHandler.ExportPengadaans)
						er.Get("/{id}", pengadaanHandler.GetPengadaan)
						er.Put("/{id}", pengadaanHandler.UpdatePengadaan)
						er.Delete("/{id}", pengadaanHandler.DeletePengadaan)
						er.Post("/{id}/submit", pengadaanHandler.SubmitPengadaan)
						er.Get("/{id}/edit-logs", pengadaanHandler.GetEditLogs)
					})
				}

				// Permission workflow routes
				if permissionHandler != nil {
					pr.Route("/permissions", func(er chi.Router) {
						er.Post("/", permissionHandler.CreatePermission)
						er.Get("/my", permissionHandler.ListMyPermissions)
						er.Get("/check", permissionHandler.CheckPermission)

						// Admin-only review routes
						er.Group(func(ar chi.Router) {
							ar.Use(roleAuth.RequireAdmin())
							ar.Get("/pending", permissionHandler.ListPendingPermissions)
							ar.Patch("/{id}/respond", permissionHandler.RespondPermission)
							ar.Patch("/{id}/revoke", permissionHandler.RevokePermission)
							ar.Post("/bulk-respond", permissionHandler.BulkRespondPermissions)
							ar.Post("/cleanup", permissionHandler.CleanupPermissions)
						})
					})
				}
			})
		}
	})
}
