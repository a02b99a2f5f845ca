package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Filestore é a implementação de Storer em disco local
type Filestore struct {
	Root    string
	BaseURL string
}

// NewFilestore cria o diretório raiz se necessário
func NewFilestore(root, baseURL string) (*Filestore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	return &Filestore{Root: root, BaseURL: baseURL}, nil
}

// Put grava num arquivo temporário e renomeia, para que leitores nunca vejam
// um blob parcial
func (s *Filestore) Put(ctx context.Context, key, contentType string, r io.ReadSeeker) error {
	fullPath := s.path(key)
	if _, err := os.Stat(fullPath); err == nil {
		return nil
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), fullPath)
}

func (s *Filestore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Filestore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Filestore) URL(key string) string {
	return joinURL(s.BaseURL, key)
}

func (s *Filestore) path(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}
