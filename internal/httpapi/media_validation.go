package httpapi

import (
	"net/http"
	"strings"

	"github.com/veriscope/veriscope/internal/models"
)

// allowedMediaContentTypes maps each accepted sniffed content type to the
// media kind the pipeline analyzes it as.
var allowedMediaContentTypes = map[string]models.MediaType{
	"image/jpeg": models.MediaTypeImage,
	"image/png":  models.MediaTypeImage,
	"image/webp": models.MediaTypeImage,
	"video/mp4":  models.MediaTypeVideo,
	"video/webm": models.MediaTypeVideo,
	"audio/wave": models.MediaTypeAudio,
	"audio/mpeg": models.MediaTypeAudio,
}

// detectAllowedMediaType sniffs the payload and rejects anything the
// pipeline cannot analyze. Client-supplied content types are ignored.
func detectAllowedMediaType(data []byte) (string, models.MediaType, bool) {
	if len(data) == 0 {
		return "", "", false
	}

	contentType := strings.ToLower(strings.TrimSpace(http.DetectContentType(data)))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	mediaType, ok := allowedMediaContentTypes[contentType]
	return contentType, mediaType, ok
}
