package promotion

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
)

// validateRequest is the body of a promotion validation call.
type validateRequest struct {
	ReleaseID string `json:"releaseId"`
}

// Handler serves the promotion validation endpoint.
type Handler struct {
	engine *Engine
}

// NewHandler creates the promotion HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// ValidateProduction handles POST requests carrying {"releaseId": "..."}.
// Method dispatch is the router's job.
func (h *Handler) ValidateProduction(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, r, gwerror.Validation("Request body must be valid JSON"))
		return
	}
	if strings.TrimSpace(req.ReleaseID) == "" {
		envelope.WriteError(w, r, gwerror.Validation("releaseId is required"))
		return
	}

	verdict, err := h.engine.Validate(r.Context(), strings.TrimSpace(req.ReleaseID))
	if err != nil {
		envelope.WriteError(w, r, gwerror.FromError(err))
		return
	}

	envelope.WriteSuccess(w, r, http.StatusOK, verdict)
}
