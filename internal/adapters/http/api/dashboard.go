package api

import (
	"context"
	"net/http"

	"github.com/okian/classroom/internal/domain/types"
)

// DashboardDependencies defines the dashboard aggregate used by the handler.
type DashboardDependencies interface {
	Dashboard(ctx context.Context, classID string) (types.DashboardResponse, error)
}

// DashboardHandler handles dashboard requests.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// HandleDashboard handles GET /dashboard?ajax_update=1.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	if r.Method != http.MethodGet || !isAjax(r, "ajax_update") {
		http.NotFound(w, r)
		return
	}
	resp, err := h.deps.Dashboard(r.Context(), classOf(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard data", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
