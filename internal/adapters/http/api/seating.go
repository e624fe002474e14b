package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/classroom/internal/domain/types"
)

// SeatingDependencies defines the seating chart operations used by the handler.
type SeatingDependencies interface {
	SeatingChart(ctx context.Context, classID string) (types.SeatingChartResponse, error)
	UpdateSeating(ctx context.Context, classID string, req types.SeatingAction) (types.SeatingChartResponse, error)
}

// SeatingHandler handles /seating-chart requests.
type SeatingHandler struct {
	deps SeatingDependencies
}

// NewSeatingHandler creates a new seating chart handler.
func NewSeatingHandler(deps SeatingDependencies) *SeatingHandler {
	return &SeatingHandler{deps: deps}
}

// HandleSeating handles /seating-chart.
//
//	GET                                                  the class's chart
//	POST {"action":"move","student_name":..,"row":..,"col":..}
//	POST {"action":"auto_arrange"} | {"action":"clear"}
func (h *SeatingHandler) HandleSeating(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.update(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SeatingHandler) get(w http.ResponseWriter, r *http.Request) {
	const op = "api.seating_chart"
	resp, err := h.deps.SeatingChart(r.Context(), classOf(r))
	if err != nil {
		writeSeatingError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SeatingHandler) update(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_seating"
	var req types.SeatingAction
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid seating action", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Action = strings.TrimSpace(req.Action)
	switch req.Action {
	case types.ActionMoveStudent:
		if strings.TrimSpace(req.StudentName) == "" || req.Row == nil || req.Col == nil {
			writeError(w, http.StatusBadRequest, "Missing student_name, row or col", NewKind(op, ErrBadRequest))
			return
		}
	case types.ActionAutoArrange, types.ActionClearSeats:
	default:
		writeError(w, http.StatusBadRequest, "Invalid seating action", NewKind(op, ErrBadRequest))
		return
	}
	resp, err := h.deps.UpdateSeating(r.Context(), classOf(r), req)
	if err != nil {
		writeSeatingError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeSeatingError(w http.ResponseWriter, op string, err error) {
	switch status := statusOf(err); status {
	case http.StatusNotFound:
		writeError(w, status, "Seating chart not found", nil)
	case http.StatusBadRequest:
		writeError(w, status, "Invalid seating action", Wrap(op, err))
	default:
		writeError(w, status, "Failed to update seating chart", Wrap(op, err))
	}
}
