package handler

import (
	"log/slog"
	"net/http"

	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/httputil"
)

// AIEditHandler handles natural-language edit requests
type AIEditHandler struct {
	aiService invitationSvc.AIEditService
	logger    *slog.Logger
}

// NewAIEditHandler creates a new AI edit handler
func NewAIEditHandler(aiService invitationSvc.AIEditService, logger *slog.Logger) *AIEditHandler {
	return &AIEditHandler{
		aiService: aiService,
		logger:    logger,
	}
}

// RequestEdit runs an instruction through the model and commits the resulting patch.
// The edit is logged whatever the outcome; failures are returned as problems.
// POST /api/documents/{id}/ai-edit
func (h *AIEditHandler) RequestEdit(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.AIEditRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.DocumentID = r.PathValue("id")

	result, err := h.aiService.RequestEdit(r.Context(), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
