package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/rounds/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	msgGradingFailed = "We're sorry, your answer could not be graded right now. Please try again in a moment."
	msgUnavailable   = "The service is temporarily unavailable. Please try again."
	msgInternal      = "Something went wrong on our side."
	msgGenerateFail  = "A question could not be generated from this material. Please try again."
)

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// respondAppError maps the error taxonomy onto HTTP. Outside debug mode
// only validation and not-found errors carry their own text; grading
// failures get an apologetic message.
func (s *Server) respondAppError(c *gin.Context, err error, grading bool) {
	var (
		status int
		code   string
		msg    string
	)

	var nf *apperr.NotFoundError
	var ve *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrInsufficientMaterial):
		status, code, msg = http.StatusNotFound, "insufficient_material", apperr.ErrInsufficientMaterial.Error()
	case errors.As(err, &nf):
		status, code, msg = http.StatusNotFound, "not_found", nf.Resource+" not found"
	case errors.As(err, &ve):
		status, code, msg = http.StatusUnprocessableEntity, "invalid", ve.Error()
	case apperr.IsTransient(err):
		status, code, msg = http.StatusServiceUnavailable, "unavailable", msgUnavailable
	default:
		status, code, msg = http.StatusInternalServerError, "internal", msgInternal
	}

	// Malformed model output is a validation failure the caller cannot fix.
	generated := ve != nil && strings.HasPrefix(ve.Field, "generated")
	switch {
	case s.cfg.Debug && (generated || status >= http.StatusInternalServerError):
		msg = err.Error()
	case grading && (generated || status >= http.StatusInternalServerError):
		msg = msgGradingFailed
	case generated:
		msg = msgGenerateFail
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "route", c.FullPath(), "status", status, "error", err.Error())
	} else {
		s.log.Debug("request rejected", "route", c.FullPath(), "status", status, "error", err.Error())
	}
	respondError(c, status, code, msg)
}
