package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

const fetchOpGravatar = "gravatar"

// GravatarConfig configura o GravatarRefresher
type GravatarConfig struct {
	BaseURL  string // host do gravatar, ex.: www.gravatar.com
	Sizes    valueobjects.AvatarSizes
	MaxBytes int64
	// SystemEmail substitui o email do usuário de sistema no hash
	SystemEmail string
}

// GravatarRefresher baixa o gravatar atual do usuário e o registra como fonte
// de avatar. Chamadas para o mesmo usuário são serializadas.
type GravatarRefresher struct {
	deps     Deps
	cfg      GravatarConfig
	newToken func() (string, error)
}

// NewGravatarRefresher cria um novo GravatarRefresher
func NewGravatarRefresher(deps Deps, cfg GravatarConfig) *GravatarRefresher {
	return &GravatarRefresher{
		deps:     deps.withDefaults(),
		cfg:      cfg,
		newToken: cacheBustToken,
	}
}

// Refresh atualiza o gravatar do usuário. O horário da tentativa é gravado
// antes da busca, em todos os caminhos.
func (r *GravatarRefresher) Refresh(ctx context.Context, userID string) (FetchResult, error) {
	unlock := r.deps.Locks.Lock(userID)
	defer unlock()

	logger := r.deps.Logger.With("user_id", userID)

	user, err := r.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return FetchResult{}, err
	}
	if user == nil {
		return FetchResult{}, domainerrors.ErrUserNotFound
	}

	if _, err := r.deps.Avatars.FindOrCreateByUserID(ctx, userID); err != nil {
		return FetchResult{}, err
	}

	attemptedAt := r.deps.Clock.Now()
	if err := r.deps.Avatars.TouchGravatarAttempt(ctx, userID, attemptedAt); err != nil {
		return FetchResult{}, err
	}

	hash := r.emailHash(user)
	if hash == "" {
		logger.Debug("gravatar refresh skipped: user has no email")
		return r.finish(FetchResult{Outcome: OutcomeMissingPrecondition}), nil
	}

	gravatarURL, err := r.gravatarURL(hash)
	if err != nil {
		return FetchResult{}, err
	}

	download, err := r.deps.Fetcher.Fetch(ctx, gravatarURL, ports.FetchOptions{MaxBytes: r.cfg.MaxBytes})
	if err != nil {
		return r.finish(classifyGravatarError(logger, err)), nil
	}
	defer download.Cleanup()

	upload, err := r.deps.Store.Store(ctx, download.File, ports.StoreRequest{
		OwnerUserID: userID,
		Filename:    "gravatar.png",
		Origin:      gravatarURL,
		Kind:        entities.UploadKindGravatar,
	})
	if err != nil {
		if isUnusablePayload(err) {
			logger.Warn("gravatar payload rejected", "error", err)
			return r.finish(notFound(err)), nil
		}
		return FetchResult{}, err
	}

	var (
		changed bool
		avatar  *entities.UserAvatar
	)
	err = r.deps.UoW.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := lockOrCreate(txCtx, r.deps, userID)
		if err != nil {
			return err
		}

		current, err := r.deps.Users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return domainerrors.ErrUserNotFound
		}

		followsGravatar := locked.DisplaysGravatar(current)

		locked.GravatarUploadID = &upload.ID
		locked.LastGravatarDownloadAttempt = timePtr(attemptedAt)
		if err := r.deps.Avatars.Update(txCtx, locked); err != nil {
			return err
		}

		if followsGravatar && !current.DisplaysUpload(&upload.ID) {
			if err := r.deps.Users.SetUploadedAvatar(txCtx, userID, &upload.ID); err != nil {
				return err
			}
			current.UploadedAvatarID = &upload.ID
			changed = true
		}

		user, avatar = current, locked
		return nil
	})
	if err != nil {
		return FetchResult{}, err
	}

	logger.Info("gravatar refreshed", "upload_id", upload.ID, "display_changed", changed)
	publishChanged(ctx, r.deps, user, avatar, fetchOpGravatar)

	return r.finish(FetchResult{Outcome: OutcomeSuccess, UploadID: upload.ID, Changed: changed}), nil
}

func (r *GravatarRefresher) finish(result FetchResult) FetchResult {
	r.deps.Metrics.ObserveFetch(fetchOpGravatar, string(result.Outcome))
	return result
}

func (r *GravatarRefresher) emailHash(user *entities.User) string {
	if user.IsSystem() && r.cfg.SystemEmail != "" {
		return valueobjects.HashEmail(r.cfg.SystemEmail)
	}
	if user.Email.IsZero() {
		return ""
	}
	return user.Email.Hash()
}

// gravatarURL monta https://{base}/avatar/{hash}.png?d=404&reset_cache={token}&s={max}
func (r *GravatarRefresher) gravatarURL(hash string) (string, error) {
	token, err := r.newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate cache token: %w", err)
	}
	return fmt.Sprintf("https://%s/avatar/%s.png?d=404&reset_cache=%s&s=%d",
		r.cfg.BaseURL, hash, url.QueryEscape(token), r.cfg.Sizes.Max()), nil
}

func classifyGravatarError(logger ports.Logger, err error) FetchResult {
	switch {
	case errors.Is(err, domainerrors.ErrRemoteNotFound):
		logger.Debug("user has no gravatar")
		return notFound(err)
	case errors.Is(err, domainerrors.ErrRemoteTooLarge):
		logger.Warn("gravatar payload rejected", "error", err)
		return notFound(err)
	default:
		logger.Warn("gravatar fetch failed", "error", err)
		return transportError(err)
	}
}

// lockOrCreate relê o registro com bloqueio de linha, recriando-o se a
// manutenção o removeu nesse meio tempo
func lockOrCreate(txCtx context.Context, d Deps, userID string) (*entities.UserAvatar, error) {
	locked, err := d.Avatars.LockByUserID(txCtx, userID)
	if err != nil || locked != nil {
		return locked, err
	}
	if _, err := d.Avatars.FindOrCreateByUserID(txCtx, userID); err != nil {
		return nil, err
	}
	return d.Avatars.LockByUserID(txCtx, userID)
}

func cacheBustToken() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
