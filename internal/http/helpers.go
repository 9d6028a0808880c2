package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeBookUnavailable     = "BOOK_UNAVAILABLE"
	CodeInvalidBorrowRecord = "INVALID_BORROW_RECORD"
	CodeAlreadyReturned     = "ALREADY_RETURNED"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeReviewNotAllowed    = "REVIEW_NOT_ALLOWED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeUserExists          = "USER_EXISTS"
	CodeAccountLinked       = "ACCOUNT_LINKED"
	CodeOAuthState          = "OAUTH_STATE_INVALID"
	CodeOAuthFailed         = "OAUTH_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInternal            = "INTERNAL_ERROR"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`    // machine-readable error code
	ErrorID string            `json:"errorId,omitempty"` // set on 500s, matches the server log
	Fields  map[string]string `json:"fields,omitempty"`  // per-field validation messages
}

// MessageResponse is a success response carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Error Response Helpers ---

// respondError maps a domain error to its HTTP status. Unknown errors are
// logged under a fresh error id and reported as 500.
func respondError(c *gin.Context, err error) {
	var verr *library.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  library.ErrValidation.Error(),
			Code:   CodeValidationFailed,
			Fields: verr.Fields,
		})
	case errors.Is(err, library.ErrNotFound):
		respondStatus(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, library.ErrBookUnavailable):
		respondStatus(c, http.StatusConflict, CodeBookUnavailable, library.ErrBookUnavailable.Error())
	case errors.Is(err, library.ErrInvalidBorrowRecord):
		respondStatus(c, http.StatusBadRequest, CodeInvalidBorrowRecord, library.ErrInvalidBorrowRecord.Error())
	case errors.Is(err, library.ErrAlreadyReturned):
		respondStatus(c, http.StatusConflict, CodeAlreadyReturned, library.ErrAlreadyReturned.Error())
	case errors.Is(err, library.ErrReviewNotAllowed):
		respondStatus(c, http.StatusForbidden, CodeReviewNotAllowed, library.ErrReviewNotAllowed.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondStatus(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
	case errors.Is(err, auth.ErrAccountLocked):
		respondStatus(c, http.StatusLocked, CodeAccountLocked, auth.ErrAccountLocked.Error())
	case errors.Is(err, auth.ErrUserExists):
		respondStatus(c, http.StatusConflict, CodeUserExists, auth.ErrUserExists.Error())
	case errors.Is(err, auth.ErrAccountLinked):
		respondStatus(c, http.StatusConflict, CodeAccountLinked, auth.ErrAccountLinked.Error())
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrAuthRequired):
		respondStatus(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	default:
		respondInternalError(c, err)
	}
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error) {
	errorID := uuid.NewString()
	log.Error().
		Err(err).
		Str("error_id", errorID).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		ErrorID: errorID,
	})
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	respondStatus(c, http.StatusBadRequest, CodeBadRequest, message)
}

func respondForbidden(c *gin.Context, message string) {
	respondStatus(c, http.StatusForbidden, CodeForbidden, message)
}

func respondStatus(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseQueryID reads an optional unsigned integer query parameter.
// A missing parameter yields 0, true.
func parseQueryID(c *gin.Context, paramName string) (uint, bool) {
	raw := c.Query(paramName)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "invalid request body")
		return false
	}
	return true
}
