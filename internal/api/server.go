package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"washplant-monitor/internal/alias"
	"washplant-monitor/internal/db"
	"washplant-monitor/internal/metrics"
	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server represents the API server
type Server struct {
	db          *db.Database
	engine      *metrics.Engine
	router      *mux.Router
	log         *logrus.Entry
	defaultDays int
}

// NewServer creates a new API server. defaultDays is the fallback window
// span when a request carries no usable bounds.
func NewServer(database *db.Database, engine *metrics.Engine, defaultDays int) *Server {
	s := &Server{
		db:          database,
		engine:      engine,
		router:      mux.NewRouter(),
		log:         logrus.WithField("component", "api"),
		defaultDays: defaultDays,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// KPI and report endpoints
	s.router.HandleFunc("/api/v1/kpis", s.handleKPIs).Methods("GET")
	s.router.HandleFunc("/api/v1/report", s.handleReport).Methods("GET")

	// Chart feeds (row-oriented aggregates; rendering happens client-side)
	s.router.HandleFunc("/api/v1/charts/production/daily", s.handleDailyProduction).Methods("GET")
	s.router.HandleFunc("/api/v1/charts/production/clients", s.handleProductionByClient).Methods("GET")
	s.router.HandleFunc("/api/v1/charts/efficiency/daily", s.handleDailyEfficiency).Methods("GET")
	s.router.HandleFunc("/api/v1/charts/water-chemicals/daily", s.handleWaterChemicals).Methods("GET")

	// Alarm endpoints
	s.router.HandleFunc("/api/v1/alarms/top", s.handleTopAlarms).Methods("GET")
	s.router.HandleFunc("/api/v1/alarms/active", s.handleActiveAlarms).Methods("GET")
	s.router.HandleFunc("/api/v1/alarms/daily", s.handleAlarmsDaily).Methods("GET")
	s.router.HandleFunc("/api/v1/alarms/severity", s.handleAlarmSeverity).Methods("GET")

	// Client catalog and alias management
	s.router.HandleFunc("/api/v1/clients", s.handleClients).Methods("GET")
	s.router.HandleFunc("/api/v1/aliases", s.handleListAliases).Methods("GET")
	s.router.HandleFunc("/api/v1/aliases", s.handleUpsertAlias).Methods("POST")
	s.router.HandleFunc("/api/v1/aliases/{id}", s.handleDeleteAlias).Methods("DELETE")

	// Stats endpoint
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")

	// Add middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Middleware
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Window  string `json:"window,omitempty"`
	Total   int    `json:"total,omitempty"`
	QueryMs int64  `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}

// requestWindow normalizes the start/end query parameters. Absent or
// malformed values fall back to the default window, so every handler
// below always has a usable range.
func (s *Server) requestWindow(r *http.Request) window.Window {
	return window.NormalizeDays(r.URL.Query().Get("start"), r.URL.Query().Get("end"), s.defaultDays)
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	win := s.requestWindow(r)

	var clientID int64
	if v := r.URL.Query().Get("client"); v != "" {
		clientID, _ = strconv.ParseInt(v, 10, 64)
	}

	result := s.engine.Compose(r.Context(), win, clientID)

	queryMs := time.Since(start).Milliseconds()
	respondWithMeta(w, result, &meta{Window: win.Label(), QueryMs: queryMs})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	win := s.requestWindow(r)

	dataset := s.engine.BuildReport(r.Context(), win)

	queryMs := time.Since(start).Milliseconds()
	respondWithMeta(w, dataset, &meta{Window: win.Label(), QueryMs: queryMs})
}

func (s *Server) handleDailyProduction(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	rows := s.engine.ProductionByDay(r.Context(), win)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleProductionByClient(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	snap := alias.Take(r.Context(), s.db)
	rows := s.engine.ProductionByClient(r.Context(), win, snap)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleDailyEfficiency(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	rows := s.engine.EfficiencyByDay(r.Context(), win)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleWaterChemicals(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	rows := s.engine.WaterChemicalsByDay(r.Context(), win)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleTopAlarms(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("scope") {
	case "", "today":
		rows := s.engine.TopAlarmsToday(r.Context())
		respondWithMeta(w, rows, &meta{Total: len(rows)})
	case "period":
		win := s.requestWindow(r)
		rows := s.engine.TopAlarmsPeriod(r.Context(), win)
		respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
	default:
		respondError(w, http.StatusBadRequest, "scope must be today or period")
	}
}

func (s *Server) handleActiveAlarms(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	rows := s.engine.ActiveAlarmList(r.Context(), limit)
	respondWithMeta(w, rows, &meta{Total: len(rows)})
}

func (s *Server) handleAlarmsDaily(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	rows := s.engine.AlarmsByDay(r.Context(), win)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleAlarmSeverity(w http.ResponseWriter, r *http.Request) {
	win := s.requestWindow(r)
	rows := s.engine.AlarmSeverity(r.Context(), win)
	respondWithMeta(w, rows, &meta{Window: win.Label(), Total: len(rows)})
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	snap := alias.Take(r.Context(), s.db)
	infos := s.engine.Clients(r.Context(), snap)
	respondWithMeta(w, infos, &meta{Total: len(infos)})
}

func (s *Server) handleListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := s.db.ListAliases(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if aliases == nil {
		aliases = []models.ClientAlias{}
	}
	respondJSON(w, http.StatusOK, aliases)
}

func (s *Server) handleUpsertAlias(w http.ResponseWriter, r *http.Request) {
	var a models.ClientAlias
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if a.ClientID <= 0 || a.DisplayName == "" {
		respondError(w, http.StatusBadRequest, "client_id and display_name are required")
		return
	}

	if err := s.db.UpsertAlias(r.Context(), a.ClientID, a.DisplayName); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteAlias(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	if err := s.db.DeleteAlias(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
