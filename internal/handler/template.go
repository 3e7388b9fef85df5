package handler

import (
	"log/slog"
	"net/http"

	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/httputil"
)

// TemplateHandler exposes the template catalog and template application
type TemplateHandler struct {
	templateService invitationSvc.TemplateService
	logger          *slog.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templateService invitationSvc.TemplateService, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		templateService: templateService,
		logger:          logger,
	}
}

// ListTemplates returns the catalog
// GET /api/templates
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.templateService.ListTemplates(r.Context()))
}

// GetTemplate returns one catalog entry
// GET /api/templates/{id}
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.templateService.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, t)
}

// ApplyTemplate selects a template and applies it as one patch set.
// Returns 428 with the preview when blocks would be dropped and the request is
// not confirmed; dry runs always return 200 with the preview.
// POST /api/documents/{id}/template
func (h *TemplateHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.ApplyTemplateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	app, err := h.templateService.ApplyTemplate(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	if !app.Applied && !req.DryRun {
		httputil.RespondErrorWithExtras(w, http.StatusPreconditionRequired,
			"applying this template drops blocks; resend with confirm set to true",
			map[string]interface{}{
				"template": app.Template.ID,
				"method":   app.Method,
				"preview":  app.Preview,
			})
		return
	}

	httputil.RespondJSON(w, http.StatusOK, app)
}
