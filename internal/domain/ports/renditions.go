package ports

import (
	"context"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// RenditionDeriver produz (ou reutiliza) renditions de tamanho fixo.
// DeriveOrFetch é idempotente para o mesmo (upload, largura, altura).
type RenditionDeriver interface {
	DeriveOrFetch(ctx context.Context, uploadID string, width, height int) (*entities.OptimizedImage, error)
	ListRenditions(ctx context.Context, uploadID string) ([]*entities.OptimizedImage, error)
	DeleteRendition(ctx context.Context, uploadID string, width, height int) error
}

// RenditionScheduler adia a criação de renditions para fora do caminho de leitura
type RenditionScheduler interface {
	Schedule(uploadID string, size int)
}
