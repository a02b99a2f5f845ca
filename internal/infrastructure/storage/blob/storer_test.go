package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabene/avantpro-avatars/internal/infrastructure/config"
)

type storerFactory func(t *testing.T) Storer

func storerFactories() map[string]storerFactory {
	return map[string]storerFactory{
		"Filestore": func(t *testing.T) Storer {
			s, err := NewFilestore(t.TempDir(), "/uploads")
			require.NoError(t, err)
			return s
		},
		"Memstore": func(t *testing.T) Storer {
			s, err := NewMemstore("/uploads")
			require.NoError(t, err)
			return s
		},
		"S3Store": func(t *testing.T) Storer {
			server := httptest.NewServer(newFakeS3("avatars"))
			t.Cleanup(server.Close)

			s, err := NewS3Store(context.Background(), config.S3Config{
				Bucket:          "avatars",
				Region:          "us-east-1",
				Endpoint:        server.URL,
				AccessKeyID:     "test",
				SecretAccessKey: "test",
				UsePathStyle:    true,
				PublicBaseURL:   "https://cdn.example.com",
			})
			require.NoError(t, err)
			return s
		},
	}
}

func TestStorerPutOpenDelete(t *testing.T) {
	for name, factory := range storerFactories() {
		t.Run("Storer="+name, func(t *testing.T) {
			ctx := context.Background()
			storer := factory(t)
			key := OriginalKey("ab12cd", "png")
			data := []byte("\x89PNG fake image bytes")

			require.NoError(t, storer.Put(ctx, key, "image/png", bytes.NewReader(data)))

			rc, err := storer.Open(ctx, key)
			require.NoError(t, err)
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, data, got)

			// Chave existente não é sobrescrita
			require.NoError(t, storer.Put(ctx, key, "image/png", bytes.NewReader([]byte("other"))))
			rc, err = storer.Open(ctx, key)
			require.NoError(t, err)
			got, _ = io.ReadAll(rc)
			_ = rc.Close()
			assert.Equal(t, data, got)

			require.NoError(t, storer.Delete(ctx, key))
			_, err = storer.Open(ctx, key)
			assert.ErrorIs(t, err, ErrBlobNotFound)

			// Delete é idempotente
			assert.NoError(t, storer.Delete(ctx, key))
		})
	}
}

func TestStorerURL(t *testing.T) {
	for name, factory := range storerFactories() {
		t.Run("Storer="+name, func(t *testing.T) {
			url := factory(t).URL(OptimizedKey("ff00aa", "png"))
			assert.True(t, strings.HasSuffix(url, "/optimized/ff/ff00aa.png"), url)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "original/ab/abcdef.jpeg", OriginalKey("abcdef", "jpeg"))
	assert.Equal(t, "optimized/00/x.png", OptimizedKey("x", "png"))
}

func TestMemstoreLen(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemstore("")
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("k%d", i), "image/png", bytes.NewReader([]byte{byte(i)})))
	}
	assert.Equal(t, 3, store.Len())
}

// fakeS3 atende o subconjunto path-style usado pelo S3Store
type fakeS3 struct {
	bucket  string
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + f.bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "bucket not found", http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		body, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
