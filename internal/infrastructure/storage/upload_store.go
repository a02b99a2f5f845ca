package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // decoders para DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"slices"
	"strings"

	"gitlab.com/paddycarver/magic-number-checker/checker"
	filetype "gopkg.in/h2non/filetype.v1"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/locks"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage/blob"
)

// SupportedMIMEs são os tipos de imagem aceitos como avatar
var SupportedMIMEs = []string{
	"image/gif",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
}

// magicWindow é quanto o MagicNumberChecker acumula antes de decidir
const magicWindow = 261

var extensions = map[string]string{
	"image/gif":  "gif",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadStore implementa ports.ContentStore: bytes no blob.Storer, metadados
// no banco. Cada Store cria um novo upload; blobs iguais são compartilhados.
type UploadStore struct {
	storer         blob.Storer
	uploadRepo     repositories.UploadRepository
	optimizedRepo  repositories.OptimizedImageRepository
	avatarRepo     repositories.UserAvatarRepository
	userRepo       repositories.UserRepository
	uow            ports.UnitOfWork
	blobLocks      *locks.Keyed
	uploadsEnabled bool
	logger         ports.Logger
}

// NewUploadStore cria um novo UploadStore
func NewUploadStore(
	storer blob.Storer,
	uploadRepo repositories.UploadRepository,
	optimizedRepo repositories.OptimizedImageRepository,
	avatarRepo repositories.UserAvatarRepository,
	userRepo repositories.UserRepository,
	uow ports.UnitOfWork,
	uploadsEnabled bool,
	logger ports.Logger,
) *UploadStore {
	return &UploadStore{
		storer:         storer,
		uploadRepo:     uploadRepo,
		optimizedRepo:  optimizedRepo,
		avatarRepo:     avatarRepo,
		userRepo:       userRepo,
		uow:            uow,
		blobLocks:      locks.NewKeyed(),
		uploadsEnabled: uploadsEnabled,
		logger:         logger,
	}
}

// Store valida o conteúdo, grava o blob e cria o registro do upload.
// Gravatars são aceitos mesmo com uploads desabilitados.
func (s *UploadStore) Store(ctx context.Context, file io.ReadSeeker, req ports.StoreRequest) (*entities.Upload, error) {
	if !s.uploadsEnabled && req.Kind != entities.UploadKindGravatar {
		return nil, domainerrors.ErrUploadsDisabled
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	mimeChecker := &checker.MagicNumberChecker{SupportedMIMEs: SupportedMIMEs}
	hasher := sha256.New()

	size, copyErr := io.Copy(io.MultiWriter(hasher, mimeChecker), file)
	contentType, err := detectMIME(file, mimeChecker, size)
	if err != nil {
		return nil, err
	}
	if copyErr != nil {
		return nil, fmt.Errorf("failed to read upload: %w", copyErr)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	ext := extensions[contentType]
	if ext == "" {
		return nil, domainerrors.ErrUnsupportedImage
	}

	width, height := s.dimensions(file, sum)

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := blob.OriginalKey(sum, ext)
	upload := &entities.Upload{
		UserID:           req.OwnerUserID,
		SHA256:           sum,
		StorageKey:       key,
		OriginalFilename: filename(req.Filename, ext),
		Extension:        ext,
		ContentType:      contentType,
		Filesize:         size,
		Width:            width,
		Height:           height,
		URL:              s.storer.URL(key),
		Origin:           req.Origin,
		Kind:             req.Kind,
	}

	// blob e linha entram juntos: releaseBlob da mesma chave não pode contar
	// as linhas entre um e outro
	err = s.withBlobLock(ctx, key, func(txCtx context.Context) error {
		if err := s.storer.Put(txCtx, key, contentType, file); err != nil {
			return fmt.Errorf("failed to store blob: %w", err)
		}
		if err := s.uploadRepo.Create(txCtx, upload); err != nil {
			return fmt.Errorf("failed to create upload: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("upload stored",
		"upload_id", upload.ID,
		"user_id", upload.UserID,
		"kind", upload.Kind,
		"sha256", sum,
		"size", size,
	)

	return upload, nil
}

// Exists verifica se o upload ainda existe
func (s *UploadStore) Exists(ctx context.Context, uploadID string) (bool, error) {
	upload, err := s.uploadRepo.FindByID(ctx, uploadID)
	if err != nil {
		return false, err
	}
	return upload != nil, nil
}

// Delete remove o upload e suas renditions, anulando as referências de avatar
// numa única transação. Os blobs só são apagados quando nenhuma outra linha
// compartilha o mesmo conteúdo.
func (s *UploadStore) Delete(ctx context.Context, uploadID string) error {
	upload, err := s.uploadRepo.FindByID(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload == nil {
		return nil
	}

	renditions, err := s.optimizedRepo.ListByUploadIDs(ctx, []string{uploadID})
	if err != nil {
		return err
	}

	err = s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.avatarRepo.ClearUpload(txCtx, uploadID); err != nil {
			return err
		}
		if _, err := s.userRepo.ClearUploadedAvatar(txCtx, uploadID); err != nil {
			return err
		}
		for _, r := range renditions {
			if err := s.optimizedRepo.Delete(txCtx, r.ID); err != nil {
				return err
			}
		}
		return s.uploadRepo.Delete(txCtx, uploadID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", uploadID, err)
	}

	for _, r := range renditions {
		s.releaseBlob(ctx, r.StorageKey, func(txCtx context.Context) (int64, error) {
			return s.optimizedRepo.CountBySHA256(txCtx, r.SHA256)
		})
	}
	s.releaseBlob(ctx, upload.StorageKey, func(txCtx context.Context) (int64, error) {
		return s.uploadRepo.CountBySHA256(txCtx, upload.SHA256)
	})

	s.logger.Info("upload deleted", "upload_id", uploadID, "renditions", len(renditions))
	return nil
}

// releaseBlob apaga o blob se nenhuma linha ainda o usa. Falhas só geram log:
// um blob órfão não quebra nenhuma referência.
func (s *UploadStore) releaseBlob(ctx context.Context, key string, remaining func(context.Context) (int64, error)) {
	err := s.withBlobLock(ctx, key, func(txCtx context.Context) error {
		count, err := remaining(txCtx)
		if err != nil {
			return fmt.Errorf("failed to count blob users: %w", err)
		}
		if count > 0 {
			return nil
		}
		return s.storer.Delete(txCtx, key)
	})
	if err != nil {
		s.logger.Warn("failed to release blob", "key", key, "error", err)
	}
}

// withBlobLock serializa quem grava e quem apaga a mesma chave: no processo
// pelo mutex da chave, entre processos pelo lock consultivo da transação.
func (s *UploadStore) withBlobLock(ctx context.Context, key string, fn func(context.Context) error) error {
	unlock := s.blobLocks.Lock(key)
	defer unlock()

	return s.uow.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.uow.LockKey(txCtx, key); err != nil {
			return fmt.Errorf("failed to lock blob %s: %w", key, err)
		}
		return fn(txCtx)
	})
}

// detectMIME usa o resultado do MagicNumberChecker. Arquivos menores que a
// janela do checker nunca chegam a ser avaliados por ele, então o cabeçalho
// é relido e classificado direto pelo filetype.
func detectMIME(file io.ReadSeeker, mimeChecker *checker.MagicNumberChecker, size int64) (string, error) {
	closeErr := mimeChecker.Close()
	if closeErr == nil {
		return mimeChecker.MatchedMIME, nil
	}
	unsupported := fmt.Errorf("%w: %v", domainerrors.ErrUnsupportedImage, closeErr)
	if size == 0 || size >= magicWindow {
		return "", unsupported
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	head, err := io.ReadAll(io.LimitReader(file, magicWindow))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	kind, err := filetype.Match(head)
	if err != nil || !slices.Contains(SupportedMIMEs, kind.MIME.Value) {
		return "", unsupported
	}
	return kind.MIME.Value, nil
}

// dimensions lê só o cabeçalho da imagem; formatos sem decoder ficam 0x0
func (s *UploadStore) dimensions(file io.ReadSeeker, sum string) (int, int) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0
	}
	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		s.logger.Debug("image dimensions unknown", "sha256", sum, "error", err)
		return 0, 0
	}
	s.logger.Debug("image decoded", "sha256", sum, "format", format, "width", cfg.Width, "height", cfg.Height)
	return cfg.Width, cfg.Height
}

func filename(name, ext string) string {
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return "avatar." + ext
	}
	return name
}
