package services

import (
	"errors"

	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
)

// Outcome é o resultado de uma busca remota de avatar
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeNotFound            Outcome = "not_found"
	OutcomeTransportError      Outcome = "transport_error"
	OutcomeMissingPrecondition Outcome = "missing_precondition"
)

// FetchResult descreve o que aconteceu numa atualização de gravatar ou
// importação por URL. Falhas remotas ficam aqui; o error de retorno dos
// serviços é reservado para falhas de infraestrutura.
type FetchResult struct {
	Outcome  Outcome
	UploadID string
	// Changed indica se o ponteiro de exibição do usuário mudou
	Changed bool
	Err     error
}

// Succeeded indica se um novo upload foi registrado
func (r FetchResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

func notFound(err error) FetchResult {
	return FetchResult{Outcome: OutcomeNotFound, Err: err}
}

func transportError(err error) FetchResult {
	return FetchResult{Outcome: OutcomeTransportError, Err: err}
}

// isUnusablePayload cobre respostas 2xx cujo conteúdo não serve como avatar
func isUnusablePayload(err error) bool {
	return errors.Is(err, domainerrors.ErrRemoteTooLarge) || errors.Is(err, domainerrors.ErrUnsupportedImage)
}
