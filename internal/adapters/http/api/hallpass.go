package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/classroom/internal/domain/types"
)

// HallPassDependencies defines the hall pass operations used by the handlers.
type HallPassDependencies interface {
	IssuePass(ctx context.Context, classID string, req types.IssuePassRequest) (types.PassResponse, error)
	ReturnPass(ctx context.Context, id string) (types.PassResponse, error)
	ListPasses(ctx context.Context, classID string) (types.PassListResponse, error)
}

// HallPassHandler handles /hall-pass-manager and /return-pass requests.
type HallPassHandler struct {
	deps HallPassDependencies
}

// NewHallPassHandler creates a new hall pass handler.
func NewHallPassHandler(deps HallPassDependencies) *HallPassHandler {
	return &HallPassHandler{deps: deps}
}

// HandleHallPasses issues a pass on POST and lists today's passes on
// GET ?ajax_data=1.
func (h *HallPassHandler) HandleHallPasses(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost:
		h.issue(w, r)
	case r.Method == http.MethodGet && isAjax(r, "ajax_data"):
		h.list(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *HallPassHandler) issue(w http.ResponseWriter, r *http.Request) {
	const op = "api.issue_pass"
	var req types.IssuePassRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to issue pass", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.IssuePass(r.Context(), classOf(r), req)
	if err != nil {
		writeError(w, statusOf(err), "Failed to issue pass", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HallPassHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_passes"
	resp, err := h.deps.ListPasses(r.Context(), classOf(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleReturn handles POST /return-pass with {"pass_id": "..."}.
func (h *HallPassHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	const op = "api.return_pass"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.ReturnPassRequest
	if err := decodeBody(w, r, &req); err != nil && !isEmptyBody(err) {
		writeError(w, http.StatusBadRequest, "Invalid request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.PassID) == "" {
		writeError(w, http.StatusBadRequest, "Missing pass_id", nil)
		return
	}
	resp, err := h.deps.ReturnPass(r.Context(), req.PassID)
	if err != nil {
		status := statusOf(err)
		if status == http.StatusNotFound {
			writeError(w, status, "Pass not found", nil)
			return
		}
		writeError(w, status, "Failed to return pass", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
