package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veriscope/veriscope/internal/analysis"
	"github.com/veriscope/veriscope/internal/auth"
	"github.com/veriscope/veriscope/internal/classifier"
	"github.com/veriscope/veriscope/internal/database"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/models"
	"github.com/veriscope/veriscope/internal/ratelimit"
)

// analyzeTimeout bounds one synchronous pipeline run, polling classifiers
// included.
const analyzeTimeout = 4 * time.Minute

// Analyzer runs the analysis pipeline. Satisfied by *analysis.Service.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// AnalysisAPI handles analysis trigger and listing endpoints.
type AnalysisAPI struct {
	analyzer       Analyzer
	media          *database.MediaStore
	analyses       *database.AnalysisStore
	limiter        ratelimit.Limiter
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewAnalysisAPI creates a new analysis API handler.
func NewAnalysisAPI(analyzer Analyzer, media *database.MediaStore, analyses *database.AnalysisStore, limiter ratelimit.Limiter, authMiddleware *auth.Middleware, logger *logging.Logger) *AnalysisAPI {
	return &AnalysisAPI{
		analyzer:       analyzer,
		media:          media,
		analyses:       analyses,
		limiter:        limiter,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers analysis routes.
func (api *AnalysisAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/analyze", corsMiddleware(api.authMiddleware.RequireAuth(api.handleAnalyze)))
	mux.HandleFunc("/api/analyses", corsMiddleware(api.authMiddleware.RequireAuth(api.handleList)))
}

func (api *AnalysisAPI) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := auth.GetUserID(r.Context())
	if api.limiter != nil && !api.limiter.Allow(userID) {
		writeError(w, http.StatusTooManyRequests, "analysis rate limit exceeded, try again shortly")
		return
	}

	var body struct {
		MediaID          string   `json:"mediaId"`
		FrameLocators    []string `json:"frameLocators"`
		ReferenceLocator string   `json:"referenceLocator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.MediaID) == "" {
		writeError(w, http.StatusBadRequest, "mediaId is required")
		return
	}

	m, err := api.media.GetByID(r.Context(), body.MediaID)
	if err != nil {
		api.logger.Error("failed to get media for analysis", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load media")
		return
	}
	if m == nil || m.OwnerUserID != userID {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	req := models.AnalysisRequest{
		MediaID:          m.ID,
		MediaType:        m.MediaType,
		SourceLocator:    m.FilePath,
		FrameLocators:    body.FrameLocators,
		ReferenceLocator: body.ReferenceLocator,
	}
	if m.MediaType == models.MediaTypeVideo && len(req.FrameLocators) == 0 {
		writeError(w, http.StatusBadRequest, "frameLocators are required for video media")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	result, err := api.analyzer.Analyze(ctx, req)
	if err != nil {
		api.writeAnalyzeError(w, m.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (api *AnalysisAPI) writeAnalyzeError(w http.ResponseWriter, mediaID string, err error) {
	api.logger.Error("analysis request failed",
		logging.WithField("mediaId", mediaID),
		logging.WithField("error", err.Error()))

	var persistence *analysis.PersistenceError
	if errors.As(err, &persistence) {
		writeError(w, http.StatusInternalServerError, "failed to record analysis result")
		return
	}

	var rateLimited *classifier.RateLimitError
	if errors.As(err, &rateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
		writeError(w, http.StatusTooManyRequests, "classification provider rate limited")
		return
	}

	// Terminal pipeline failures (unfetchable media, no usable frames) are
	// recorded on the result row; surface them as unprocessable input.
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

func (api *AnalysisAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := api.analyses.ListRecent(r.Context(), limit)
	if err != nil {
		api.logger.Error("failed to list analyses", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": results,
		"count":    len(results),
	})
}
