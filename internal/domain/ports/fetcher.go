package ports

import (
	"context"
	"os"
)

// FetchOptions controla uma busca remota
type FetchOptions struct {
	MaxBytes        int64
	FollowRedirects bool
}

// Download é o arquivo temporário devolvido por uma busca remota bem-sucedida.
// O chamador deve chamar Cleanup quando terminar.
type Download struct {
	File        *os.File
	Size        int64
	ContentType string
	FinalURL    string
}

// Cleanup fecha e remove o arquivo temporário
func (d *Download) Cleanup() {
	if d == nil || d.File == nil {
		return
	}
	name := d.File.Name()
	_ = d.File.Close()
	_ = os.Remove(name)
}

// RemoteFetcher faz GET com proteção contra SSRF.
// Erros seguem a taxonomia de internal/domain/errors: ErrRemoteNotFound (404),
// *HTTPStatusError (outros não-2xx), ErrSSRFRejected, ErrRemoteTooLarge;
// qualquer outro erro é falha de transporte.
type RemoteFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Download, error)
}
