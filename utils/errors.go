package utils

import (
	"errors"
	"net/http"

	"qa-agent/internal/rag"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithPipelineError maps pipeline errors onto HTTP statuses:
// caller mistakes are 400, provider outages 503, bad provider output 502,
// anything unrecognized 500.
func RespondWithPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidArgument):
		RespondWithError(c, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
	case errors.Is(err, rag.ErrNoGroundingContext):
		RespondWithError(c, http.StatusBadRequest, "no_grounding_context", err.Error(), nil)
	case errors.Is(err, rag.ErrDimensionMismatch):
		RespondWithError(c, http.StatusBadRequest, "dimension_mismatch", err.Error(), nil)
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "embedding_unavailable", err.Error(), nil)
	case errors.Is(err, rag.ErrGenerationUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "generation_unavailable", err.Error(), nil)
	case errors.Is(err, rag.ErrGenerationParseError):
		RespondWithError(c, http.StatusBadGateway, "generation_parse_error", err.Error(), nil)
	case errors.Is(err, rag.ErrUngroundedClaim):
		RespondWithError(c, http.StatusBadGateway, "ungrounded_claim", err.Error(), nil)
	default:
		RespondWithInternalError(c, err.Error(), nil)
	}
}
