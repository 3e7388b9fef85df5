package handler

import (
	"context"
	"log/slog"
	"net/http"

	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/invitation"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/httputil"
	"vowcraft/internal/service/style"
)

// StyleResolver produces render-ready styles for committed versions
type StyleResolver interface {
	ResolveDocument(ctx context.Context, doc *invitation.Document) *style.ResolvedStyle
	ResolveBranch(ctx context.Context, branch *invitation.Branch) *style.ResolvedStyle
}

// DocumentHandler handles invitation document HTTP requests
type DocumentHandler struct {
	docService invitationSvc.DocumentService
	styles     StyleResolver
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService invitationSvc.DocumentService, styles StyleResolver, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		styles:     styles,
		logger:     logger,
	}
}

// CreateDocument creates a document from a seed
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	doc, err := h.docService.CreateDocument(r.Context(), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments lists the caller's documents, most recently updated first
// GET /api/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docService.ListDocuments(r.Context(), httputil.GetUserID(r))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument returns the committed document
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// PatchDocument applies a manual patch set against a base version
// POST /api/documents/{id}/patch
func (h *DocumentHandler) PatchDocument(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.PatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.docService.PatchDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ChangeStatus publishes, unpublishes or archives the document
// POST /api/documents/{id}/status
func (h *DocumentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.StatusRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.docService.ChangeStatus(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ListHistory returns the document's edit log, oldest first.
// ?limit=N returns the N most recent entries.
// GET /api/documents/{id}/history
func (h *DocumentHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", config.MaxHistoryPage)
	if err != nil {
		handleError(w, err)
		return
	}
	if limit == 0 || limit > config.MaxHistoryPage {
		limit = config.MaxHistoryPage
	}

	entries, err := h.docService.ListHistory(r.Context(), httputil.GetUserID(r), r.PathValue("id"), limit)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// UndoEdit reverts a committed edit
// POST /api/edits/{id}/undo
func (h *DocumentHandler) UndoEdit(w http.ResponseWriter, r *http.Request) {
	result, err := h.docService.UndoEdit(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetStyle returns the resolved style of the committed document
// GET /api/documents/{id}/style
func (h *DocumentHandler) GetStyle(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, styleResponse{
		Version: doc.Version,
		Style:   h.styles.ResolveDocument(r.Context(), doc),
	})
}

// styleResponse ties a resolved style to the version it was resolved from
type styleResponse struct {
	Version int                  `json:"version"`
	Style   *style.ResolvedStyle `json:"style"`
}
