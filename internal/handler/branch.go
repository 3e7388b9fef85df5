package handler

import (
	"log/slog"
	"net/http"

	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/httputil"
)

// BranchHandler handles document branch HTTP requests
type BranchHandler struct {
	branchService invitationSvc.BranchService
	styles        StyleResolver
	logger        *slog.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branchService invitationSvc.BranchService, styles StyleResolver, logger *slog.Logger) *BranchHandler {
	return &BranchHandler{
		branchService: branchService,
		styles:        styles,
		logger:        logger,
	}
}

// CreateBranch snapshots the document into a new branch
// POST /api/documents/{id}/branches
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.CreateBranchRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			handleError(w, err)
			return
		}
	}

	branch, err := h.branchService.CreateBranch(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, branch)
}

// ListBranches lists a document's branches in creation order
// GET /api/documents/{id}/branches
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.branchService.ListBranches(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branches)
}

// GetBranch returns a branch with its document copy
// GET /api/branches/{id}
func (h *BranchHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch, err := h.branchService.GetBranch(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branch)
}

// PatchBranch applies a patch set to the branch's copy
// POST /api/branches/{id}/patch
func (h *BranchHandler) PatchBranch(w http.ResponseWriter, r *http.Request) {
	var req invitationSvc.PatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.branchService.PatchBranch(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetStyle returns the resolved style of the branch's copy
// GET /api/branches/{id}/style
func (h *BranchHandler) GetStyle(w http.ResponseWriter, r *http.Request) {
	branch, err := h.branchService.GetBranch(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, styleResponse{
		Version: branch.Version(),
		Style:   h.styles.ResolveBranch(r.Context(), branch),
	})
}

// DeleteBranch removes a branch
// DELETE /api/branches/{id}
func (h *BranchHandler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	if err := h.branchService.DeleteBranch(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
