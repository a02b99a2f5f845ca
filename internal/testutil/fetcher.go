package testutil

import (
	"context"
	"os"
	"sync"

	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

// FetchCall registra uma chamada ao FakeFetcher
type FetchCall struct {
	URL     string
	Options ports.FetchOptions
}

// FakeFetcher é um ports.RemoteFetcher programável: devolve Err quando
// definido, senão Body num arquivo temporário.
type FakeFetcher struct {
	mu          sync.Mutex
	Body        []byte
	ContentType string
	Err         error
	calls       []FetchCall
}

// Respond programa uma resposta 2xx com o corpo informado
func (f *FakeFetcher) Respond(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Body, f.Err = body, nil
}

// Fail programa uma falha
func (f *FakeFetcher) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Body, f.Err = nil, err
}

// Calls devolve uma cópia das chamadas recebidas
func (f *FakeFetcher) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchCall(nil), f.calls...)
}

// Fetch implementa ports.RemoteFetcher
func (f *FakeFetcher) Fetch(_ context.Context, rawURL string, opts ports.FetchOptions) (*ports.Download, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FetchCall{URL: rawURL, Options: opts})
	body, err, contentType := f.Body, f.Err, f.ContentType
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "fake-fetch-*")
	if err != nil {
		return nil, err
	}
	download := &ports.Download{File: tmp, Size: int64(len(body)), ContentType: contentType, FinalURL: rawURL}
	if _, err := tmp.Write(body); err != nil {
		download.Cleanup()
		return nil, err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		download.Cleanup()
		return nil, err
	}
	return download, nil
}
