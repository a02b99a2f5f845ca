package repositories

import (
	"context"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// OptimizedImageRepository define a persistência das renditions
type OptimizedImageRepository interface {
	// Create insere a rendition; em conflito de (upload, largura, altura)
	// devolve a existente
	Create(ctx context.Context, image *entities.OptimizedImage) (*entities.OptimizedImage, error)
	FindByUploadAndSize(ctx context.Context, uploadID string, width, height int) (*entities.OptimizedImage, error)
	ListByUploadIDs(ctx context.Context, uploadIDs []string) ([]*entities.OptimizedImage, error)
	Delete(ctx context.Context, id string) error
	CountBySHA256(ctx context.Context, sha256 string) (int64, error)
}
