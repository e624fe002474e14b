// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/classroom/internal/domain/types"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PickerDependencies
	HallPassDependencies
	DashboardDependencies
	SeatingDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	pickerHandler    *PickerHandler
	auditHandler     *AuditHandler
	hallPassHandler  *HallPassHandler
	dashboardHandler *DashboardHandler
	seatingHandler   *SeatingHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		pickerHandler:    NewPickerHandler(deps),
		auditHandler:     NewAuditHandler(deps),
		hallPassHandler:  NewHallPassHandler(deps),
		dashboardHandler: NewDashboardHandler(deps),
		seatingHandler:   NewSeatingHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/random-picker/audit", MetricsMiddleware(s.auditHandler.HandleAudit, "random_picker_audit"))
	mux.HandleFunc("/random-picker", MetricsMiddleware(s.pickerHandler.HandlePicker, "random_picker"))
	mux.HandleFunc("/hall-pass-manager", MetricsMiddleware(s.hallPassHandler.HandleHallPasses, "hall_pass_manager"))
	mux.HandleFunc("/return-pass", MetricsMiddleware(s.hallPassHandler.HandleReturn, "return_pass"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/seating-chart", MetricsMiddleware(s.seatingHandler.HandleSeating, "seating_chart"))
}

func classOf(r *http.Request) string {
	return types.ClassID(r.URL.Query().Get("class"))
}

func isAjax(r *http.Request, flag string) bool {
	return r.URL.Query().Get(flag) == "1"
}

// decodeBody decodes a JSON body into v. An empty body is reported as io.EOF.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message, "details": err}. A nil err omits
// the details.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := types.ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
