package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"

	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
)

// ErrorResponse segue RFC 7807 (Problem Details for HTTP APIs)
type ErrorResponse struct {
	*problems.Problem
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError representa um erro de validação de campo
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
	Value   string `json:"value,omitempty"`
}

// NewErrorResponseI18n cria uma resposta de erro usando i18n
func NewErrorResponseI18n(c *gin.Context, problemType, titleKey, detailKey string, status int, params ...map[string]any) ErrorResponse {
	baseURL := c.GetString("base_url")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	problem := problems.NewDetailedProblem(status, T(c, detailKey, params...))
	problem.Type = baseURL + problemType
	problem.Title = T(c, titleKey, params...)
	problem.Instance = c.Request.URL.Path

	return ErrorResponse{Problem: problem}
}

// WriteProblem encerra a requisição com o documento de problema
func WriteProblem(c *gin.Context, response ErrorResponse) {
	c.Header("Content-Type", problems.ProblemMediaType)
	c.AbortWithStatusJSON(response.Status, response)
}

// ValidationErrorResponseI18n cria uma resposta de erro de validação
func ValidationErrorResponseI18n(c *gin.Context, err error) ErrorResponse {
	response := NewErrorResponseI18n(
		c,
		domainerrors.ProblemTypeValidation,
		"error.validation.title",
		"error.validation.detail",
		http.StatusBadRequest,
	)
	response.Errors = validationErrors(err)
	return response
}

// NotFoundErrorResponseI18n cria uma resposta de erro 404
func NotFoundErrorResponseI18n(c *gin.Context, detailKey string) ErrorResponse {
	return NewErrorResponseI18n(c, domainerrors.ProblemTypeNotFound, "error.not_found.title", detailKey, http.StatusNotFound)
}

// BadRequestErrorResponseI18n cria uma resposta de erro 400
func BadRequestErrorResponseI18n(c *gin.Context, detailKey string) ErrorResponse {
	return NewErrorResponseI18n(c, domainerrors.ProblemTypeBadRequest, "error.bad_request.title", detailKey, http.StatusBadRequest)
}

// ConflictErrorResponseI18n cria uma resposta de erro 409
func ConflictErrorResponseI18n(c *gin.Context, detailKey string, params ...map[string]any) ErrorResponse {
	return NewErrorResponseI18n(c, domainerrors.ProblemTypeConflict, "error.conflict.title", detailKey, http.StatusConflict, params...)
}

// UnprocessableErrorResponseI18n cria uma resposta de erro 422
func UnprocessableErrorResponseI18n(c *gin.Context, detailKey string) ErrorResponse {
	return NewErrorResponseI18n(c, domainerrors.ProblemTypeUnprocessable, "error.unprocessable.title", detailKey, http.StatusUnprocessableEntity)
}

// BadGatewayErrorResponseI18n cria uma resposta de erro 502 para falhas de busca remota
func BadGatewayErrorResponseI18n(c *gin.Context, url string) ErrorResponse {
	return NewErrorResponseI18n(
		c,
		domainerrors.ProblemTypeBadGateway,
		"error.bad_gateway.title",
		domainerrors.ErrRemoteFetchFailed.Error(),
		http.StatusBadGateway,
		map[string]any{"URL": url},
	)
}

// InternalErrorResponseI18n cria uma resposta de erro 500
func InternalErrorResponseI18n(c *gin.Context) ErrorResponse {
	return NewErrorResponseI18n(
		c,
		domainerrors.ProblemTypeInternal,
		"error.internal.title",
		"error.internal.detail",
		http.StatusInternalServerError,
	)
}

// ErrorResponseFor traduz um erro de domínio para o problema correspondente
func ErrorResponseFor(c *gin.Context, err error) ErrorResponse {
	switch {
	case errors.Is(err, domainerrors.ErrUserNotFound):
		return NotFoundErrorResponseI18n(c, domainerrors.ErrUserNotFound.Error())
	case errors.Is(err, domainerrors.ErrUploadNotFound):
		return NotFoundErrorResponseI18n(c, domainerrors.ErrUploadNotFound.Error())
	case errors.Is(err, domainerrors.ErrInvalidAvatarSize):
		return BadRequestErrorResponseI18n(c, domainerrors.ErrInvalidAvatarSize.Error())
	case errors.Is(err, domainerrors.ErrUploadsDisabled):
		return ConflictErrorResponseI18n(c, domainerrors.ErrUploadsDisabled.Error())
	case errors.Is(err, domainerrors.ErrMaintenanceRunning):
		return ConflictErrorResponseI18n(c, domainerrors.ErrMaintenanceRunning.Error())
	case errors.Is(err, domainerrors.ErrUnsupportedImage):
		return UnprocessableErrorResponseI18n(c, domainerrors.ErrUnsupportedImage.Error())
	default:
		return InternalErrorResponseI18n(c)
	}
}

func validationErrors(err error) []ValidationError {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: fe.Error(),
			Tag:     fe.Tag(),
			Value:   fe.Param(),
		})
	}
	return out
}
