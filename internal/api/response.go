package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/models"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

// respondError maps pool errors onto HTTP statuses. Anything untyped is an internal failure.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	if pe, ok := models.AsPoolError(err); ok {
		c.JSON(statusFor(pe.Kind), Response{Error: &ErrorBody{
			Kind:    string(pe.Kind),
			Code:    pe.Code,
			Message: pe.Message,
		}})
		return
	}

	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, Response{Error: &ErrorBody{
		Kind:    "internal",
		Message: "internal error",
	}})
}

// respondBindError reports a malformed request body as a validation failure
func respondBindError(c *gin.Context, err error) {
	message := err.Error()
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		message = "invalid field " + verrs[0].Field() + ": failed " + verrs[0].Tag()
	}
	c.JSON(http.StatusBadRequest, Response{Error: &ErrorBody{
		Kind:    string(models.KindValidation),
		Code:    models.CodeInvalidInput,
		Message: message,
	}})
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
