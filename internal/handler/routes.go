package handler

import "net/http"

// Handlers groups the HTTP handlers registered on the router
type Handlers struct {
	Documents *DocumentHandler
	AIEdits   *AIEditHandler
	Templates *TemplateHandler
	Branches  *BranchHandler
	Health    *HealthHandler
	Metrics   http.Handler // nil leaves /metrics unregistered
}

// RegisterRoutes registers every route on mux (Go 1.22+ method and wildcard patterns)
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	// Health and metrics
	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// Document routes
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents", h.Documents.ListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("POST /api/documents/{id}/patch", h.Documents.PatchDocument)
	mux.HandleFunc("POST /api/documents/{id}/status", h.Documents.ChangeStatus)
	mux.HandleFunc("GET /api/documents/{id}/style", h.Documents.GetStyle)

	// Edit history
	mux.HandleFunc("GET /api/documents/{id}/history", h.Documents.ListHistory)
	mux.HandleFunc("POST /api/edits/{id}/undo", h.Documents.UndoEdit)

	// AI edits
	mux.HandleFunc("POST /api/documents/{id}/ai-edit", h.AIEdits.RequestEdit)

	// Templates
	mux.HandleFunc("GET /api/templates", h.Templates.ListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", h.Templates.GetTemplate)
	mux.HandleFunc("POST /api/documents/{id}/template", h.Templates.ApplyTemplate)

	// Branches
	mux.HandleFunc("POST /api/documents/{id}/branches", h.Branches.CreateBranch)
	mux.HandleFunc("GET /api/documents/{id}/branches", h.Branches.ListBranches)
	mux.HandleFunc("GET /api/branches/{id}", h.Branches.GetBranch)
	mux.HandleFunc("POST /api/branches/{id}/patch", h.Branches.PatchBranch)
	mux.HandleFunc("GET /api/branches/{id}/style", h.Branches.GetStyle)
	mux.HandleFunc("DELETE /api/branches/{id}", h.Branches.DeleteBranch)
}
