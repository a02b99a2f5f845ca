package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
)

// Refresher é a operação de atualização de gravatar de um usuário
type Refresher interface {
	Refresh(ctx context.Context, userID string) (FetchResult, error)
}

// StaleRefreshConfig configura o StaleGravatarRefresher
type StaleRefreshConfig struct {
	Enabled       bool
	StaleAfter    time.Duration
	RatePerSecond float64
	PageSize      int
}

// StaleRefreshReport contabiliza uma passada de atualização
type StaleRefreshReport struct {
	Attempted           int `json:"attempted"`
	Succeeded           int `json:"succeeded"`
	NotFound            int `json:"not_found"`
	MissingPrecondition int `json:"missing_precondition"`
	TransportErrors     int `json:"transport_errors"`
	Failed              int `json:"failed"`
}

// StaleGravatarRefresher atualiza, em ritmo limitado, os gravatars cuja
// última tentativa é antiga ou inexistente
type StaleGravatarRefresher struct {
	deps      Deps
	refresher Refresher
	cfg       StaleRefreshConfig
}

// NewStaleGravatarRefresher cria um novo StaleGravatarRefresher
func NewStaleGravatarRefresher(deps Deps, refresher Refresher, cfg StaleRefreshConfig) *StaleGravatarRefresher {
	switch {
	case cfg.PageSize <= 0:
		cfg.PageSize = 500
	case cfg.PageSize > 5000:
		cfg.PageSize = 5000
	}
	return &StaleGravatarRefresher{deps: deps.withDefaults(), refresher: refresher, cfg: cfg}
}

// RefreshStale percorre os registros vencidos. Falhas individuais são
// contadas; só falhas de contexto ou de listagem interrompem a passada.
func (s *StaleGravatarRefresher) RefreshStale(ctx context.Context) (StaleRefreshReport, error) {
	var report StaleRefreshReport
	if !s.cfg.Enabled {
		s.deps.Logger.Debug("automatic gravatar download disabled")
		return report, nil
	}

	limit := rate.Inf
	if s.cfg.RatePerSecond > 0 {
		limit = rate.Limit(s.cfg.RatePerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	cutoff := s.deps.Clock.Now().Add(-s.cfg.StaleAfter)
	cursor := ""

	for {
		page, err := s.deps.Avatars.List(ctx, repositories.UserAvatarFilters{
			AfterID:         cursor,
			Limit:           s.cfg.PageSize,
			AttemptedBefore: &cutoff,
		})
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID

		for _, avatar := range page {
			if err := limiter.Wait(ctx); err != nil {
				return report, err
			}

			report.Attempted++
			result, err := s.refresher.Refresh(ctx, avatar.UserID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return report, ctxErr
				}
				report.Failed++
				if !errors.Is(err, domainerrors.ErrUserNotFound) {
					s.deps.Logger.Warn("stale gravatar refresh failed", "user_id", avatar.UserID, "error", err)
				}
				continue
			}

			switch result.Outcome {
			case OutcomeSuccess:
				report.Succeeded++
			case OutcomeNotFound:
				report.NotFound++
			case OutcomeMissingPrecondition:
				report.MissingPrecondition++
			case OutcomeTransportError:
				report.TransportErrors++
			}
		}

		if len(page) < s.cfg.PageSize {
			break
		}
	}

	s.deps.Logger.Info("stale gravatar refresh finished",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"not_found", report.NotFound,
		"transport_errors", report.TransportErrors,
		"failed", report.Failed,
	)
	return report, nil
}
