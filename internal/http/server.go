// Package http exposes the JSON API consumed by the presentation
// layer. Handlers stay thin: parsing, service calls, view shaping.
package http

import (
	"log/slog"
	"net/http"
	"time"

	applog "deyn/internal/log"
	"deyn/internal/services"
	"deyn/internal/storage"
)

type Server struct {
	*http.Server
	obligations *services.ObligationService
	dashboard   *services.DashboardService
	store       storage.Store
	locale      string
}

func NewServer(addr string, obligations *services.ObligationService, dashboard *services.DashboardService, store storage.Store, locale string) *Server {
	s := &Server{
		obligations: obligations,
		dashboard:   dashboard,
		store:       store,
		locale:      locale,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("POST /api/entities", s.handleCreateEntity)
	mux.HandleFunc("DELETE /api/entities/{id}", s.handleDeleteEntity)

	mux.HandleFunc("GET /api/obligations", s.handleListObligations)
	mux.HandleFunc("POST /api/obligations", s.handleCreateObligation)
	mux.HandleFunc("GET /api/obligations/{id}", s.handleGetObligation)
	mux.HandleFunc("GET /api/obligations/{id}/payments", s.handleListPayments)
	mux.HandleFunc("POST /api/obligations/{id}/payments", s.handleRecordPayment)

	mux.HandleFunc("POST /api/extract", s.handleExtract)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	accessLog := applog.New(slog.LevelInfo, applog.ComponentHTTP)
	s.Server = &http.Server{
		Addr:           addr,
		Handler:        applog.RequestMiddleware(accessLog)(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
