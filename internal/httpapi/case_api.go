package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veriscope/veriscope/internal/auth"
	"github.com/veriscope/veriscope/internal/database"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/storage"
)

// CaseAPI handles forensic case CRUD endpoints.
type CaseAPI struct {
	cases          *database.CaseStore
	media          *database.MediaStore
	objects        storage.ObjectStore
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewCaseAPI creates a new case API handler.
func NewCaseAPI(cases *database.CaseStore, media *database.MediaStore, objects storage.ObjectStore, authMiddleware *auth.Middleware, logger *logging.Logger) *CaseAPI {
	return &CaseAPI{
		cases:          cases,
		media:          media,
		objects:        objects,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers case routes.
func (api *CaseAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/cases", corsMiddleware(api.authMiddleware.RequireAuth(api.handleCollection)))
	mux.HandleFunc("/api/cases/", corsMiddleware(api.authMiddleware.RequireAuth(api.handleItem)))
}

func (api *CaseAPI) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.handleCreate(w, r)
	case http.MethodGet:
		api.handleList(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *CaseAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/cases/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		api.handleGet(w, r, id)
	case http.MethodPatch:
		api.handleUpdateStatus(w, r, id)
	case http.MethodDelete:
		api.handleDelete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (api *CaseAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.CreateCaseParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(params.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	created, err := api.cases.Create(r.Context(), auth.GetUserID(r.Context()), params)
	if err != nil {
		api.logger.Error("failed to create case", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create case")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (api *CaseAPI) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cases, err := api.cases.ListByOwner(r.Context(), auth.GetUserID(r.Context()), limit)
	if err != nil {
		api.logger.Error("failed to list cases", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list cases")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases": cases,
		"count": len(cases),
	})
}

func (api *CaseAPI) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	c := api.loadOwnedCase(w, r, id)
	if c == nil {
		return
	}

	files, err := api.media.ListByCase(r.Context(), c.ID)
	if err != nil {
		api.logger.Error("failed to list case media", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load case")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":  c,
		"media": files,
	})
}

func (api *CaseAPI) handleUpdateStatus(w http.ResponseWriter, r *http.Request, id string) {
	c := api.loadOwnedCase(w, r, id)
	if c == nil {
		return
	}

	var body struct {
		Status models.CaseStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch body.Status {
	case models.CaseOpen, models.CaseClosed, models.CaseArchived:
	default:
		writeError(w, http.StatusBadRequest, "invalid case status")
		return
	}

	if err := api.cases.UpdateStatus(r.Context(), c.ID, body.Status); err != nil {
		api.logger.Error("failed to update case status", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to update case")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(body.Status)})
}

// handleDelete removes the case row and purges its stored objects. Object
// deletion is best effort; the database row is authoritative.
func (api *CaseAPI) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	c := api.loadOwnedCase(w, r, id)
	if c == nil {
		return
	}

	files, err := api.media.ListByCase(r.Context(), c.ID)
	if err != nil {
		api.logger.Error("failed to list case media for purge", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete case")
		return
	}

	if err := api.cases.Delete(r.Context(), c.ID); err != nil {
		api.logger.Error("failed to delete case", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete case")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, f := range files {
		if err := api.objects.Delete(ctx, f.FilePath); err != nil {
			api.logger.Warn("failed to purge media object",
				logging.WithField("mediaId", f.ID),
				logging.WithField("path", f.FilePath),
				logging.WithField("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// loadOwnedCase fetches the case and enforces ownership, writing the error
// response itself when the case is unavailable.
func (api *CaseAPI) loadOwnedCase(w http.ResponseWriter, r *http.Request, id string) *models.Case {
	c, err := api.cases.GetByID(r.Context(), id)
	if err != nil {
		api.logger.Error("failed to get case", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load case")
		return nil
	}
	if c == nil || c.OwnerUserID != auth.GetUserID(r.Context()) {
		writeError(w, http.StatusNotFound, "case not found")
		return nil
	}
	return c
}
