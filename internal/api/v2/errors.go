package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/features"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// Messages shared with existing clients.
const (
	msgGrowthModelNotLoaded  = "Growth model not loaded"
	msgDiseaseModelNotLoaded = "Model not loaded"
	msgSchemaNotLoaded       = "Reference columns not loaded"
	msgInvalidFileFormat     = "Invalid file format."
	msgInvalidImage          = "Invalid image file."
	msgDuplicateUser         = "This username or email address is registered."
	msgInvalidDiseaseType    = "invalid disease type id"
	msgInternal              = "Internal server error"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// correlationID reuses the request ID set by the server middleware.
func correlationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()[:8]
}

// HandleError writes an error response with an explicit status and message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, correlationID(ctx))
	if code >= http.StatusInternalServerError {
		// internal details stay in the log
		resp.Error = message
	}

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API request rejected", fields...)
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordHTTPRequestError(ctx.Request().Method, ctx.Path(), errorType(err, code))
	}

	return ctx.JSON(code, resp)
}

// respond maps err onto a status code and message and writes the response.
func (c *Controller) respond(ctx echo.Context, err error) error {
	code, message := statusFor(err)
	return c.HandleError(ctx, err, message, code)
}

// requestError carries a status chosen by the handler.
type requestError struct {
	status  int
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(message string, err error) error {
	return &requestError{status: http.StatusBadRequest, message: message, err: err}
}

func notFound(message string) error {
	return &requestError{status: http.StatusNotFound, message: message}
}

// statusFor maps domain errors to HTTP status codes. Sentinels take
// precedence over categories; anything unrecognised is a 500.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status, reqErr.message
	}

	var unsupported *disease.UnsupportedSpeciesError
	if errors.As(err, &unsupported) {
		return http.StatusBadRequest, unsupported.Error()
	}

	switch {
	case errors.Is(err, inference.ErrModelUnavailable):
		return http.StatusServiceUnavailable, msgDiseaseModelNotLoaded
	case errors.Is(err, features.ErrSchemaUnavailable):
		return http.StatusInternalServerError, msgSchemaNotLoaded
	case errors.Is(err, inference.ErrInvalidImage):
		return http.StatusBadRequest, msgInvalidImage
	case errors.Is(err, disease.ErrInvalidImageFormat):
		return http.StatusBadRequest, msgInvalidFileFormat
	case errors.Is(err, repository.ErrInvalidReference):
		return http.StatusBadRequest, "referenced record does not exist"
	}

	switch errors.CategoryFor(err) {
	case errors.CategoryUnavailable:
		return http.StatusServiceUnavailable, err.Error()
	case errors.CategorySchema:
		return http.StatusInternalServerError, msgSchemaNotLoaded
	case errors.CategoryValidation, errors.CategoryUnsupported:
		return http.StatusBadRequest, err.Error()
	case errors.CategoryImageDecode:
		return http.StatusBadRequest, msgInvalidImage
	case errors.CategoryNotFound:
		return http.StatusNotFound, err.Error()
	case errors.CategoryConflict:
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, msgInternal
}

func errorType(err error, code int) string {
	if category := errors.CategoryFor(err); category != "" {
		return string(category)
	}
	return http.StatusText(code)
}
