// Package renditions produz as versões redimensionadas dos uploads e as
// aquece em segundo plano.
package renditions

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage/blob"
)

const renditionExtension = "png"

// Deriver implementa ports.RenditionDeriver com disintegration/imaging.
// Pedidos concorrentes do mesmo tamanho compartilham uma única derivação.
type Deriver struct {
	storer        blob.Storer
	uploadRepo    repositories.UploadRepository
	optimizedRepo repositories.OptimizedImageRepository
	group         singleflight.Group
	logger        ports.Logger
}

// NewDeriver cria um novo Deriver
func NewDeriver(
	storer blob.Storer,
	uploadRepo repositories.UploadRepository,
	optimizedRepo repositories.OptimizedImageRepository,
	logger ports.Logger,
) *Deriver {
	return &Deriver{
		storer:        storer,
		uploadRepo:    uploadRepo,
		optimizedRepo: optimizedRepo,
		logger:        logger,
	}
}

// DeriveOrFetch devolve a rendition existente ou cria uma nova
func (d *Deriver) DeriveOrFetch(ctx context.Context, uploadID string, width, height int) (*entities.OptimizedImage, error) {
	if width <= 0 || height <= 0 {
		return nil, domainerrors.ErrInvalidAvatarSize
	}

	existing, err := d.optimizedRepo.FindByUploadAndSize(ctx, uploadID, width, height)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	key := fmt.Sprintf("%s:%dx%d", uploadID, width, height)
	v, err, shared := d.group.Do(key, func() (any, error) {
		return d.derive(ctx, uploadID, width, height)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		d.logger.Debug("rendition derivation shared", "upload_id", uploadID, "width", width, "height", height)
	}
	return v.(*entities.OptimizedImage), nil
}

func (d *Deriver) derive(ctx context.Context, uploadID string, width, height int) (*entities.OptimizedImage, error) {
	// Outra chamada pode ter terminado entre a busca e o Do
	existing, err := d.optimizedRepo.FindByUploadAndSize(ctx, uploadID, width, height)
	if err != nil || existing != nil {
		return existing, err
	}

	upload, err := d.uploadRepo.FindByID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, domainerrors.ErrUploadNotFound
	}

	rc, err := d.storer.Open(ctx, upload.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open original %s: %w", upload.StorageKey, err)
	}
	defer func() { _ = rc.Close() }()

	src, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrUnsupportedImage, err)
	}

	resized := imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode rendition: %w", err)
	}

	digest := sha256.Sum256(buf.Bytes())
	sum := hex.EncodeToString(digest[:])
	storageKey := blob.OptimizedKey(sum, renditionExtension)

	if err := d.storer.Put(ctx, storageKey, "image/png", bytes.NewReader(buf.Bytes())); err != nil {
		return nil, fmt.Errorf("failed to store rendition: %w", err)
	}

	image, err := d.optimizedRepo.Create(ctx, &entities.OptimizedImage{
		UploadID:   uploadID,
		Width:      width,
		Height:     height,
		SHA256:     sum,
		StorageKey: storageKey,
		Extension:  renditionExtension,
		Filesize:   int64(buf.Len()),
		URL:        d.storer.URL(storageKey),
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info("rendition derived",
		"upload_id", uploadID,
		"width", width,
		"height", height,
		"filesize", buf.Len(),
	)
	return image, nil
}

// ListRenditions lista as renditions de um upload
func (d *Deriver) ListRenditions(ctx context.Context, uploadID string) ([]*entities.OptimizedImage, error) {
	return d.optimizedRepo.ListByUploadIDs(ctx, []string{uploadID})
}

// DeleteRendition remove a rendition e, se ninguém mais usa o conteúdo, o blob
func (d *Deriver) DeleteRendition(ctx context.Context, uploadID string, width, height int) error {
	image, err := d.optimizedRepo.FindByUploadAndSize(ctx, uploadID, width, height)
	if err != nil {
		return err
	}
	if image == nil {
		return nil
	}

	if err := d.optimizedRepo.Delete(ctx, image.ID); err != nil {
		return err
	}

	remaining, err := d.optimizedRepo.CountBySHA256(ctx, image.SHA256)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := d.storer.Delete(ctx, image.StorageKey); err != nil {
			d.logger.Warn("failed to delete rendition blob", "key", image.StorageKey, "error", err)
		}
	}
	return nil
}
