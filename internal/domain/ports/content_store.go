package ports

import (
	"context"
	"io"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
)

// StoreRequest descreve um novo upload
type StoreRequest struct {
	OwnerUserID string
	Filename    string
	Origin      string
	Kind        entities.UploadKind
}

// ContentStore é o armazenamento durável de imagens, endereçado por conteúdo.
// Cada Store cria um novo upload, mesmo para conteúdo já conhecido.
type ContentStore interface {
	Store(ctx context.Context, file io.ReadSeeker, req StoreRequest) (*entities.Upload, error)
	Exists(ctx context.Context, uploadID string) (bool, error)
	// Delete remove o upload, suas renditions e anula referências de avatar.
	// Só o sweeper chama.
	Delete(ctx context.Context, uploadID string) error
}
