package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/internal/analysis"
	"github.com/veriscope/veriscope/internal/auth"
	"github.com/veriscope/veriscope/internal/cache"
	"github.com/veriscope/veriscope/internal/database"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/storage"
)

// MediaAPI handles media upload and retrieval, including the per-media
// analysis result endpoints.
type MediaAPI struct {
	media          *database.MediaStore
	cases          *database.CaseStore
	analyses       *database.AnalysisStore
	objects        storage.ObjectStore
	statusCache    cache.Cache
	authMiddleware *auth.Middleware
	logger         *logging.Logger
	maxUploadBytes int64
}

// NewMediaAPI creates a new media API handler.
func NewMediaAPI(media *database.MediaStore, cases *database.CaseStore, analyses *database.AnalysisStore, objects storage.ObjectStore, statusCache cache.Cache, authMiddleware *auth.Middleware, maxUploadBytes int64, logger *logging.Logger) *MediaAPI {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 100 << 20
	}
	return &MediaAPI{
		media:          media,
		cases:          cases,
		analyses:       analyses,
		objects:        objects,
		statusCache:    statusCache,
		authMiddleware: authMiddleware,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers media routes.
func (api *MediaAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/media/upload", corsMiddleware(api.authMiddleware.RequireAuth(api.handleUpload)))
	mux.HandleFunc("/api/media/", corsMiddleware(api.authMiddleware.RequireAuth(api.handleItem)))
}

func (api *MediaAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/media/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			api.handleGet(w, r, parts[0])
		case http.MethodDelete:
			api.handleDelete(w, r, parts[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(parts) == 2 && parts[1] == "analysis":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleGetAnalysis(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "analysis" && parts[2] == "status":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		api.handleGetAnalysisStatus(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (api *MediaAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := auth.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes)
	if err := r.ParseMultipartForm(api.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload payload")
		return
	}

	caseID := strings.TrimSpace(r.FormValue("caseId"))
	if caseID == "" {
		writeError(w, http.StatusBadRequest, "caseId is required")
		return
	}

	c, err := api.cases.GetByID(r.Context(), caseID)
	if err != nil {
		api.logger.Error("failed to get case for upload", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load case")
		return
	}
	if c == nil || c.OwnerUserID != userID {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		writeError(w, http.StatusBadRequest, "media file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read media file")
		return
	}

	contentType, mediaType, ok := detectAllowedMediaType(data)
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported media type")
		return
	}

	path := "cases/" + caseID + "/" + uuid.NewString() + extensionFor(contentType)

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	if err := api.objects.Upload(ctx, path, data, contentType); err != nil {
		api.logger.Error("failed to store media object", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	saved, err := api.media.Create(ctx, &models.MediaFile{
		CaseID:      caseID,
		OwnerUserID: userID,
		FileName:    header.Filename,
		FilePath:    path,
		MediaType:   mediaType,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		api.logger.Error("failed to save media record", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to save media")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

func (api *MediaAPI) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	m := api.loadOwnedMedia(w, r, id)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (api *MediaAPI) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	m := api.loadOwnedMedia(w, r, id)
	if m == nil {
		return
	}

	if err := api.media.Delete(r.Context(), m.ID); err != nil {
		api.logger.Error("failed to delete media record", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete media")
		return
	}
	if err := api.objects.Delete(r.Context(), m.FilePath); err != nil {
		api.logger.Warn("failed to purge media object",
			logging.WithField("mediaId", m.ID),
			logging.WithField("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (api *MediaAPI) handleGetAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	m := api.loadOwnedMedia(w, r, id)
	if m == nil {
		return
	}

	result, err := api.analyses.GetByMediaID(r.Context(), m.ID)
	if err != nil {
		api.logger.Error("failed to get analysis result", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "no analysis for this media")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAnalysisStatus serves the lightweight polling endpoint. The
// cache answers while a run is in flight; the database is the fallback.
func (api *MediaAPI) handleGetAnalysisStatus(w http.ResponseWriter, r *http.Request, id string) {
	m := api.loadOwnedMedia(w, r, id)
	if m == nil {
		return
	}

	if api.statusCache != nil {
		if v, ok := api.statusCache.Get(analysis.StatusKey(m.ID)); ok {
			if status, ok := v.(string); ok {
				writeJSON(w, http.StatusOK, map[string]string{"mediaId": m.ID, "status": status})
				return
			}
		}
	}

	result, err := api.analyses.GetByMediaID(r.Context(), m.ID)
	if err != nil {
		api.logger.Error("failed to get analysis status", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load analysis status")
		return
	}
	status := string(models.AnalysisPending)
	if result != nil {
		status = string(result.Status)
	}

	writeJSON(w, http.StatusOK, map[string]string{"mediaId": m.ID, "status": status})
}

func (api *MediaAPI) loadOwnedMedia(w http.ResponseWriter, r *http.Request, id string) *models.MediaFile {
	m, err := api.media.GetByID(r.Context(), id)
	if err != nil {
		api.logger.Error("failed to get media", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load media")
		return nil
	}
	if m == nil || m.OwnerUserID != auth.GetUserID(r.Context()) {
		writeError(w, http.StatusNotFound, "media not found")
		return nil
	}
	return m
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/wave":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	}
	return ""
}
