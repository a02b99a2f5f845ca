package repositories

import (
	"context"
	"time"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// UserAvatarRepository define a persistência dos registros de avatar
type UserAvatarRepository interface {
	FindByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error)
	// FindOrCreateByUserID cria o registro na primeira chamada; seguro sob concorrência
	FindOrCreateByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error)
	// LockByUserID relê o registro com bloqueio de linha (requer transação no context)
	LockByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error)
	Update(ctx context.Context, avatar *entities.UserAvatar) error
	// TouchGravatarAttempt grava apenas o horário da tentativa de download
	TouchGravatarAttempt(ctx context.Context, userID string, at time.Time) error
	// ClearUpload anula gravatar/custom que apontam para o upload
	ClearUpload(ctx context.Context, uploadID string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	// ReferencedUploadIDs retorna, entre ids, os uploads referenciados por algum registro
	ReferencedUploadIDs(ctx context.Context, uploadIDs []string) ([]string, error)
	List(ctx context.Context, filters UserAvatarFilters) ([]*entities.UserAvatar, error)
}

// UserAvatarFilters pagina registros por keyset (id > AfterID, ordenado por id)
type UserAvatarFilters struct {
	AfterID string
	Limit   int // default: 500, max: 5000
	// AttemptedBefore restringe a registros sem tentativa ou com tentativa anterior ao instante
	AttemptedBefore *time.Time
}
