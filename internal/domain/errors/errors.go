package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Business errors
// Nota: Estes são códigos de erro (message IDs para i18n).
// As traduções ficam em internal/infrastructure/i18n/locales/*.json
var (
	ErrUserNotFound       = errors.New("error.user_not_found")
	ErrUploadNotFound     = errors.New("error.upload_not_found")
	ErrInvalidAvatarSize  = errors.New("error.invalid_avatar_size")
	ErrUploadsDisabled    = errors.New("error.uploads_disabled")
	ErrUnsupportedImage   = errors.New("error.unsupported_image")
	ErrRemoteFetchFailed  = errors.New("error.remote_fetch_failed")
	ErrMaintenanceRunning = errors.New("error.maintenance_running")
)

// Remote fetch errors
// Taxonomia das falhas de busca remota. Qualquer erro fora desta lista
// vindo do fetcher é tratado como falha de transporte.
var (
	ErrRemoteNotFound = errors.New("remote image not found")
	ErrSSRFRejected   = errors.New("remote address rejected")
	ErrRemoteTooLarge = errors.New("remote image too large")
)

// HTTPStatusError representa uma resposta remota fora da faixa 2xx
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("remote responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is faz um 404 casar com ErrRemoteNotFound
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrRemoteNotFound && e.StatusCode == http.StatusNotFound
}

// IsHTTPStatus verifica se o erro é uma resposta não-2xx
func IsHTTPStatus(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr)
}

// ProblemType define tipos de problemas (URIs RFC 7807)
// Nota: O domínio base virá de configuração (API_BASE_URL)
//
//nolint:misspell
const (
	ProblemTypeValidation    = "/problems/validation-error"
	ProblemTypeNotFound      = "/problems/not-found"
	ProblemTypeConflict      = "/problems/conflict"
	ProblemTypeBadGateway    = "/problems/bad-gateway"
	ProblemTypeUnprocessable = "/problems/unprocessable"
	ProblemTypeInternal      = "/problems/internal-error"
	ProblemTypeBadRequest    = "/problems/bad-request"
)
