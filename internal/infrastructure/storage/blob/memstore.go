package blob

import (
	"bytes"
	"context"
	"io"

	memdb "github.com/hashicorp/go-memdb"
)

var (
	schema = &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"blob": {
				Name: "blob",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
)

// Memblob é um blob guardado no Memstore
type Memblob struct {
	Key         string
	ContentType string
	Contents    []byte
}

// Memstore é a implementação de Storer em memória, usada em testes e no
// backend "memory"
type Memstore struct {
	db      *memdb.MemDB
	baseURL string
}

// NewMemstore cria um Memstore vazio
func NewMemstore(baseURL string) (*Memstore, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &Memstore{db: db, baseURL: baseURL}, nil
}

func (m *Memstore) Put(ctx context.Context, key, contentType string, r io.ReadSeeker) error {
	contents, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	txn := m.db.Txn(true)
	defer txn.Abort()

	exists, err := txn.First("blob", "id", key)
	if err != nil {
		return err
	}
	if exists != nil {
		return nil
	}

	if err := txn.Insert("blob", &Memblob{Key: key, ContentType: contentType, Contents: contents}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (m *Memstore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	txn := m.db.Txn(false)
	res, err := txn.First("blob", "id", key)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(res.(*Memblob).Contents)), nil
}

func (m *Memstore) Delete(ctx context.Context, key string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	exists, err := txn.First("blob", "id", key)
	if err != nil {
		return err
	}
	if exists == nil {
		return nil
	}
	if err := txn.Delete("blob", exists); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (m *Memstore) URL(key string) string {
	return joinURL(m.baseURL, key)
}

// Len retorna quantos blobs estão guardados
func (m *Memstore) Len() int {
	txn := m.db.Txn(false)
	it, err := txn.Get("blob", "id")
	if err != nil {
		return 0
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}
