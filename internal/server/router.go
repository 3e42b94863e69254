package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/handlers"
	"github.com/transfret/backoffice/internal/httpx"
	"github.com/transfret/backoffice/internal/middleware"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, billing *services.BillingService, mail handlers.MailSender) http.Handler {
	mux := http.NewServeMux()

	// Resolver so RequireAuth/RequireRole can check the user still exists and
	// read its role.
	auth.SetRoleResolver(func(_ context.Context, uid uint) string {
		var user models.User
		if err := db.Preload("Role").First(&user, uid).Error; err != nil {
			return ""
		}
		return user.Role.Name
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireRole(h, models.RoleAdmin))
	}

	// Clients
	ch := handlers.NewClientHandler(db)
	mux.Handle("GET /clients", authed(ch.List))
	mux.Handle("POST /clients", authed(ch.Create))
	mux.Handle("GET /clients/{id}", authed(ch.Get))
	mux.Handle("PUT /clients/{id}", authed(ch.Update))
	mux.Handle("DELETE /clients/{id}", authed(ch.Delete))

	// Fournisseurs
	fh := handlers.NewFournisseurHandler(db)
	mux.Handle("GET /fournisseurs", authed(fh.List))
	mux.Handle("POST /fournisseurs", authed(fh.Create))
	mux.Handle("GET /fournisseurs/{id}", authed(fh.Get))
	mux.Handle("PUT /fournisseurs/{id}", authed(fh.Update))
	mux.Handle("DELETE /fournisseurs/{id}", authed(fh.Delete))

	// Bordereaux (kind = transport | freight)
	sh := handlers.NewSlipHandler(db)
	mux.Handle("GET /slips/{kind}", authed(sh.List))
	mux.Handle("POST /slips/{kind}", authed(sh.Create))
	mux.Handle("GET /slips/{kind}/{id}", authed(sh.Get))
	mux.Handle("POST /slips/{kind}/{id}/status", authed(sh.UpdateStatus))

	// Factures
	ih := handlers.NewInvoiceHandler(db, billing, mail)
	mux.Handle("GET /invoices", authed(ih.List))
	mux.Handle("POST /invoices", authed(ih.Create))
	mux.Handle("GET /invoices/{id}", authed(ih.Get))
	mux.Handle("POST /invoices/{id}/pay", authed(ih.Pay))
	mux.Handle("GET /invoices/{id}/pdf", authed(ih.PDF))
	mux.Handle("POST /invoices/{id}/send", authed(ih.Send))

	// Devis
	qh := handlers.NewQuoteHandler(db, billing)
	mux.Handle("GET /quotes", authed(qh.List))
	mux.Handle("POST /quotes", authed(qh.Create))
	mux.Handle("GET /quotes/{id}", authed(qh.Get))
	mux.Handle("POST /quotes/{id}/status", authed(qh.UpdateStatus))
	mux.Handle("POST /quotes/{id}/invoice", authed(qh.Convert))

	// Avoirs
	nh := handlers.NewCreditNoteHandler(db, billing)
	mux.Handle("GET /credit-notes", authed(nh.List))
	mux.Handle("POST /credit-notes", authed(nh.Create))
	mux.Handle("GET /credit-notes/{id}", authed(nh.Get))
	mux.Handle("POST /credit-notes/{id}/account", authed(nh.Account))

	// Tableau de bord
	dh := handlers.NewDashboardHandler(services.NewDashboardService(db))
	mux.Handle("GET /dashboard", authed(dh.Get))

	// Gestion des utilisateurs, réservée au rôle admin
	uh := handlers.NewAdminUserHandler(db)
	mux.Handle("GET /admin/users", adminOnly(uh.List))
	mux.Handle("POST /admin/users", adminOnly(uh.Create))
	mux.Handle("PUT /admin/users/{id}", adminOnly(uh.Update))
	mux.Handle("DELETE /admin/users/{id}", adminOnly(uh.Delete))

	return middleware.Metrics(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
