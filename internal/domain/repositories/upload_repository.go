package repositories

import (
	"context"
	"time"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// UploadRepository define a persistência de uploads e de suas referências externas
type UploadRepository interface {
	Create(ctx context.Context, upload *entities.Upload) error
	FindByID(ctx context.Context, id string) (*entities.Upload, error)
	FindByIDs(ctx context.Context, ids []string) ([]*entities.Upload, error)
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	Delete(ctx context.Context, id string) error
	CountBySHA256(ctx context.Context, sha256 string) (int64, error)
	Count(ctx context.Context) (int64, error)
	// ListAvatarUploads pagina uploads de avatar criados antes do instante
	ListAvatarUploads(ctx context.Context, afterID string, createdBefore time.Time, limit int) ([]*entities.Upload, error)

	CreateReference(ctx context.Context, ref *entities.UploadReference) error
	// ReferencedIDs retorna, entre ids, os uploads com alguma referência externa
	ReferencedIDs(ctx context.Context, ids []string) ([]string, error)
}
