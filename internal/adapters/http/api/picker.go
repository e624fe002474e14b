package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/classroom/internal/domain/types"
)

// PickerDependencies defines the picker operations used by the handlers.
type PickerDependencies interface {
	Pick(ctx context.Context, classID string) (types.PickResponse, error)
	Stats(ctx context.Context, classID string) (types.StatsResponse, error)
	Reset(ctx context.Context, classID string) (types.MessageResponse, error)
	Audit(ctx context.Context, classID, day string) (types.AuditResponse, error)
}

// PickerHandler handles /random-picker requests.
type PickerHandler struct {
	deps PickerDependencies
}

// NewPickerHandler creates a new picker handler.
func NewPickerHandler(deps PickerDependencies) *PickerHandler {
	return &PickerHandler{deps: deps}
}

// HandlePicker handles /random-picker.
//
//	POST                              pick a student
//	POST {"action":"reset_history"}   reset today's history
//	GET  ?ajax_data=1                 picker statistics
//
// A POST body that is not valid JSON is treated as no body.
func (h *PickerHandler) HandlePicker(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost:
		var action types.PickerAction
		_ = decodeBody(w, r, &action)
		if strings.TrimSpace(action.Action) == types.ActionResetHistory {
			h.reset(w, r)
			return
		}
		h.pick(w, r)
	case r.Method == http.MethodGet && isAjax(r, "ajax_data"):
		h.stats(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *PickerHandler) pick(w http.ResponseWriter, r *http.Request) {
	const op = "api.pick"
	resp, err := h.deps.Pick(r.Context(), classOf(r))
	if err != nil {
		if status := statusOf(err); status == http.StatusBadRequest {
			writeError(w, status, "No students available", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Selection failed", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PickerHandler) reset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_history"
	resp, err := h.deps.Reset(r.Context(), classOf(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset history", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PickerHandler) stats(w http.ResponseWriter, r *http.Request) {
	const op = "api.picker_data"
	resp, err := h.deps.Stats(r.Context(), classOf(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get picker data", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AuditHandler handles /random-picker/audit requests.
type AuditHandler struct {
	deps PickerDependencies
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(deps PickerDependencies) *AuditHandler {
	return &AuditHandler{deps: deps}
}

// HandleAudit handles GET /random-picker/audit?day=YYYY-MM-DD; no day
// means today.
func (h *AuditHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	const op = "api.audit"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	resp, err := h.deps.Audit(r.Context(), classOf(r), strings.TrimSpace(r.URL.Query().Get("day")))
	if err != nil {
		status := statusOf(err)
		if status == http.StatusBadRequest {
			writeError(w, status, "Invalid day", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, status, "Failed to load audit", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
