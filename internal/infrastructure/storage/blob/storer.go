// Package blob guarda os bytes das imagens. As chaves são derivadas do
// SHA256 do conteúdo, então gravar a mesma chave duas vezes é um no-op.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rafabene/avantpro-avatars/internal/infrastructure/config"
)

var (
	// ErrBlobNotFound é retornado quando a chave não existe no Storer
	ErrBlobNotFound = errors.New("blob not found")
)

// Storer é a interface de armazenamento de blobs
type Storer interface {
	// Put grava o conteúdo na chave; se a chave já existe nada é escrito
	Put(ctx context.Context, key, contentType string, r io.ReadSeeker) error

	// Open abre o blob para leitura; ErrBlobNotFound se não existir
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete remove o blob; remover uma chave inexistente não é erro
	Delete(ctx context.Context, key string) error

	// URL monta a URL pública do blob
	URL(key string) string
}

// OriginalKey é a chave do arquivo original de um upload
func OriginalKey(sha256, extension string) string {
	return fmt.Sprintf("original/%s/%s.%s", shard(sha256), sha256, extension)
}

// OptimizedKey é a chave de uma rendition
func OptimizedKey(sha256, extension string) string {
	return fmt.Sprintf("optimized/%s/%s.%s", shard(sha256), sha256, extension)
}

func shard(sha256 string) string {
	if len(sha256) < 2 {
		return "00"
	}
	return sha256[:2]
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// New cria o Storer configurado em UPLOADS_BACKEND
func New(ctx context.Context, uploads config.UploadsConfig, s3cfg config.S3Config) (Storer, error) {
	switch uploads.Backend {
	case "local":
		return NewFilestore(uploads.LocalRoot, uploads.PublicBaseURL)
	case "memory":
		return NewMemstore(uploads.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", uploads.Backend)
	}
}
