package repositories

import (
	"context"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// UserRepository define a interface para persistência de usuários
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	FindByID(ctx context.Context, id string) (*entities.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*entities.User, error)
	Delete(ctx context.Context, id string) error
	// ExistingIDs retorna, entre ids, os usuários que existem e não foram deletados
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	SetUploadedAvatar(ctx context.Context, userID string, uploadID *string) error
	// ClearUploadedAvatar anula o ponteiro de exibição de quem aponta para o upload
	ClearUploadedAvatar(ctx context.Context, uploadID string) (int64, error)
	// DisplayedUploadIDs retorna, entre ids, os uploads usados como ponteiro de exibição
	DisplayedUploadIDs(ctx context.Context, uploadIDs []string) ([]string, error)
}
