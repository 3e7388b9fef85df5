package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/auth"
	"vowcraft/internal/catalog"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/metrics"
	"vowcraft/internal/middleware"
	"vowcraft/internal/repository/memory"
	"vowcraft/internal/service/aiedit"
	authz "vowcraft/internal/service/auth"
	"vowcraft/internal/service/commit"
	invitationService "vowcraft/internal/service/invitation"
	"vowcraft/internal/service/llm"
	"vowcraft/internal/service/llm/llmtest"
	"vowcraft/internal/service/patchengine"
	"vowcraft/internal/service/style"
	templateService "vowcraft/internal/service/template"
)

type server struct {
	t         *testing.T
	handler   http.Handler
	completer *llmtest.ScriptedCompleter
}

func newServer(t *testing.T, replies ...string) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(nil)

	docRepo := memory.NewDocumentRepository()
	branchRepo := memory.NewBranchRepository()
	editLog := memory.NewEditLogRepository()
	engine := patchengine.New()
	publisher := events.NewRecorder()
	authorizer := authz.NewOwnerBasedAuthorizer(docRepo, branchRepo, editLog)
	committer := commit.NewCommitter(engine, docRepo, editLog, memory.NewTransactionManager(), publisher, m, logger)

	cat, err := catalog.Load("")
	require.NoError(t, err)

	completer := llmtest.NewScriptedCompleter(replies...)
	generator := llm.NewPatchGenerator(completer, "scripted-model", logger)
	styles := style.NewService(nil, m, logger)

	h := &Handlers{
		Documents: NewDocumentHandler(
			invitationService.NewDocumentService(docRepo, editLog, committer, authorizer, logger), styles, logger),
		AIEdits: NewAIEditHandler(
			aiedit.NewService(generator, docRepo, committer, authorizer,
				aiedit.Config{Timeout: 5 * time.Second, ContextMaxBytes: 16 * 1024}, m, logger), logger),
		Templates: NewTemplateHandler(
			templateService.NewTemplateService(cat, templateService.NewApplier(engine, nil), nil,
				docRepo, committer, authorizer, m, logger), logger),
		Branches: NewBranchHandler(
			invitationService.NewBranchService(branchRepo, docRepo, engine, authorizer, publisher, m, logger), styles, logger),
		Health: NewHealthHandler(nil, logger),
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)

	return &server{
		t:         t,
		handler:   middleware.AuthMiddleware(auth.NewDevVerifier(logger))(mux),
		completer: completer,
	}
}

func (s *server) do(method, path, user string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type problem struct {
	Status          int    `json:"status"`
	Detail          string `json:"detail"`
	ExpectedVersion int    `json:"expected_version"`
	CurrentVersion  int    `json:"current_version"`
	OpIndex         *int   `json:"op_index"`
	Path            string `json:"path"`
}

type commitResponse struct {
	Document invitation.Document `json:"document"`
	Changed  bool                `json:"changed"`
	EditID   string              `json:"edit_id"`
}

func (s *server) createSample(user string) invitation.Document {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/documents", user, map[string]interface{}{
		"title": "Alex & Sam",
		"seed":  "sample",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[invitation.Document](s.t, rec)
}

func retitleBody(baseVersion int, title string) map[string]interface{} {
	return map[string]interface{}{
		"base_version": baseVersion,
		"ops": []map[string]interface{}{
			{"op": "replace", "path": "/blocks/hero/title", "value": title},
		},
		"audit": true,
	}
}

func heroTitle(t *testing.T, doc invitation.Document) string {
	t.Helper()
	block, _, ok := doc.BlockByID("hero")
	require.True(t, ok)
	hero, ok := block.Content.(*invitation.HeroContent)
	require.True(t, ok)
	return hero.Title
}

func TestDocuments_CreateGetList(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, invitation.StatusDraft, doc.Status)

	rec := s.do(http.MethodGet, "/api/documents/"+doc.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Save the Date", heroTitle(t, decode[invitation.Document](t, rec)))

	rec = s.do(http.MethodGet, "/api/documents", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]invitation.Document](t, rec), 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/documents/"+doc.ID, "bob", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/documents/missing", "alice", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/documents/"+doc.ID, "", nil).Code)
}

func TestDocuments_CreateRejectsBadRequests(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/api/documents", "alice", map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = s.do(http.MethodPost, "/api/documents", "alice", map[string]interface{}{"title": "x", "baseVersion": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestDocuments_PatchConflictCarriesVersions(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")
	path := "/api/documents/" + doc.ID + "/patch"

	rec := s.do(http.MethodPost, path, "alice", retitleBody(1, "You're Invited"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[commitResponse](t, rec)
	assert.Equal(t, 2, res.Document.Version)
	assert.True(t, res.Changed)
	assert.NotEmpty(t, res.EditID)

	rec = s.do(http.MethodPost, path, "alice", retitleBody(1, "Stale"))
	require.Equal(t, http.StatusConflict, rec.Code)
	p := decode[problem](t, rec)
	assert.Equal(t, 1, p.ExpectedVersion)
	assert.Equal(t, 2, p.CurrentVersion)
}

func TestDocuments_PatchValidationCarriesOperation(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")

	rec := s.do(http.MethodPost, "/api/documents/"+doc.ID+"/patch", "alice", map[string]interface{}{
		"base_version": 1,
		"ops": []map[string]interface{}{
			{"op": "replace", "path": "/blocks/hero/title", "value": "ok"},
			{"op": "remove", "path": "/blocks/no-such-block"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decode[problem](t, rec)
	require.NotNil(t, p.OpIndex)
	assert.Equal(t, 1, *p.OpIndex)

	rec = s.do(http.MethodGet, "/api/documents/"+doc.ID, "alice", nil)
	assert.Equal(t, "Save the Date", heroTitle(t, decode[invitation.Document](t, rec)), "nothing applied")
}

func TestDocuments_StatusHistoryAndUndo(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")
	base := "/api/documents/" + doc.ID

	rec := s.do(http.MethodPost, base+"/patch", "alice", retitleBody(1, "You're Invited"))
	require.Equal(t, http.StatusOK, rec.Code)
	editID := decode[commitResponse](t, rec).EditID

	rec = s.do(http.MethodPost, base+"/status", "alice", map[string]interface{}{"base_version": 2, "status": "published"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, invitation.StatusPublished, decode[commitResponse](t, rec).Document.Status)

	rec = s.do(http.MethodGet, base+"/history", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]history.Entry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, history.SourceManual, entries[0].Source)

	rec = s.do(http.MethodGet, base+"/history?limit=1", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]history.Entry](t, rec), 1)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, base+"/history?limit=-1", "alice", nil).Code)

	// the status change moved the document on, so undoing the retitle conflicts
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/edits/"+editID+"/undo", "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/edits/missing/undo", "alice", nil).Code)
}

func TestDocuments_UndoRestores(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")

	rec := s.do(http.MethodPost, "/api/documents/"+doc.ID+"/patch", "alice", retitleBody(1, "You're Invited"))
	require.Equal(t, http.StatusOK, rec.Code)
	editID := decode[commitResponse](t, rec).EditID

	rec = s.do(http.MethodPost, "/api/edits/"+editID+"/undo", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[commitResponse](t, rec)
	assert.Equal(t, 3, res.Document.Version)
	assert.Equal(t, "Save the Date", heroTitle(t, res.Document))

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/edits/"+editID+"/undo", "bob", nil).Code)
}

func TestDocuments_Style(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")

	rec := s.do(http.MethodGet, "/api/documents/"+doc.ID+"/style", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Version int                 `json:"version"`
		Style   style.ResolvedStyle `json:"style"`
	}](t, rec)
	assert.Equal(t, 1, body.Version)
	assert.Len(t, body.Style.Blocks, len(doc.Blocks))
	assert.NotEmpty(t, body.Style.Base)
}

func TestAIEdit(t *testing.T) {
	s := newServer(t, `{"ops": [{"op": "replace", "path": "/blocks/hero/title", "value": "You're Invited"}]}`)
	doc := s.createSample("alice")

	rec := s.do(http.MethodPost, "/api/documents/"+doc.ID+"/ai-edit", "alice", map[string]interface{}{
		"prompt": "make the headline more inviting",
		"scope":  []string{"hero"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[struct {
		EditID     string              `json:"edit_id"`
		NewVersion int                 `json:"new_version"`
		Document   invitation.Document `json:"document"`
	}](t, rec)
	assert.Equal(t, 2, res.NewVersion)
	assert.Equal(t, "You're Invited", heroTitle(t, res.Document))
	assert.NotEmpty(t, res.EditID)
	assert.Equal(t, 1, s.completer.CallCount())
}

func TestAIEdit_ModelFailureIs502(t *testing.T) {
	s := newServer(t)
	s.completer.Err = errors.New("upstream overloaded")
	doc := s.createSample("alice")

	rec := s.do(http.MethodPost, "/api/documents/"+doc.ID+"/ai-edit", "alice", map[string]interface{}{
		"prompt": "shorter please",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upstream overloaded")

	rec = s.do(http.MethodGet, "/api/documents/"+doc.ID+"/history", "alice", nil)
	entries := decode[[]history.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, history.OutcomeFailed, entries[0].Outcome)
}

func TestTemplates(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/api/templates", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]map[string]interface{}](t, rec))

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/templates/photo-journal", "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/templates/nope", "alice", nil).Code)
}

func TestApplyTemplate_ConfirmFlow(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")
	path := "/api/documents/" + doc.ID + "/template"

	rec := s.do(http.MethodPost, path, "alice", map[string]interface{}{
		"template_id": "modern-minimal", "base_version": 1, "dry_run": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[struct {
		Applied bool `json:"applied"`
	}](t, rec).Applied)

	rec = s.do(http.MethodPost, path, "alice", map[string]interface{}{
		"template_id": "modern-minimal", "base_version": 1,
	})
	require.Equal(t, http.StatusPreconditionRequired, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "preview")

	rec = s.do(http.MethodPost, path, "alice", map[string]interface{}{
		"template_id": "modern-minimal", "base_version": 1, "confirm": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decode[struct {
		Applied bool           `json:"applied"`
		Result  commitResponse `json:"result"`
	}](t, rec)
	assert.True(t, applied.Applied)
	assert.Equal(t, 2, applied.Result.Document.Version)
}

func TestBranches(t *testing.T) {
	s := newServer(t)
	doc := s.createSample("alice")

	rec := s.do(http.MethodPost, "/api/documents/"+doc.ID+"/branches", "alice", map[string]interface{}{"name": "bold"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	branch := decode[invitation.Branch](t, rec)
	assert.Equal(t, "bold", branch.Name)
	assert.Equal(t, 1, branch.OriginVersion)

	rec = s.do(http.MethodPost, "/api/documents/"+doc.ID+"/branches", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, "an empty body uses the default name")

	rec = s.do(http.MethodGet, "/api/documents/"+doc.ID+"/branches", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]invitation.Branch](t, rec), 2)

	rec = s.do(http.MethodPost, "/api/branches/"+branch.ID+"/patch", "alice", retitleBody(1, "Bold Move"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/branches/"+branch.ID+"/patch", "alice", retitleBody(1, "Stale"))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/branches/"+branch.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[invitation.Branch](t, rec)
	assert.Equal(t, "Bold Move", heroTitle(t, got.Document))

	rec = s.do(http.MethodGet, "/api/documents/"+doc.ID, "alice", nil)
	assert.Equal(t, "Save the Date", heroTitle(t, decode[invitation.Document](t, rec)), "origin untouched")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/branches/"+branch.ID+"/style", "alice", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/branches/"+branch.ID, "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/branches/"+branch.ID, "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/branches/"+branch.ID, "alice", nil).Code)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"redis": pinger{}}, logger).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"redis": pinger{err: errors.New("down")}}, logger).
		HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}
