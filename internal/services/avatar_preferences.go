package services

import (
	"context"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
)

// AvatarPreferences altera a escolha explícita entre gravatar e upload próprio
type AvatarPreferences struct {
	deps Deps
}

// NewAvatarPreferences cria um novo AvatarPreferences
func NewAvatarPreferences(deps Deps) *AvatarPreferences {
	return &AvatarPreferences{deps: deps.withDefaults()}
}

// SetPreferGravatar grava a preferência e reaponta o ponteiro de exibição
// para a fonte que a regra de precedência passa a escolher
func (p *AvatarPreferences) SetPreferGravatar(ctx context.Context, userID string, prefer bool) error {
	unlock := p.deps.Locks.Lock(userID)
	defer unlock()

	var (
		user   *entities.User
		avatar *entities.UserAvatar
	)
	err := p.deps.UoW.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := p.deps.Users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return domainerrors.ErrUserNotFound
		}

		locked, err := lockOrCreate(txCtx, p.deps, userID)
		if err != nil {
			return err
		}

		locked.PreferGravatar = prefer
		if err := p.deps.Avatars.Update(txCtx, locked); err != nil {
			return err
		}

		if next := entities.SelectDisplayUpload(locked); !current.DisplaysUpload(next) {
			if err := p.deps.Users.SetUploadedAvatar(txCtx, userID, next); err != nil {
				return err
			}
			current.UploadedAvatarID = next
		}

		user, avatar = current, locked
		return nil
	})
	if err != nil {
		return err
	}

	p.deps.Logger.Info("avatar preference updated", "user_id", userID, "prefer_gravatar", prefer)
	publishChanged(ctx, p.deps, user, avatar, "preference")
	return nil
}
