package services

import (
	"context"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

// ResolverConfig configura o AvatarResolver
type ResolverConfig struct {
	Sizes              valueobjects.AvatarSizes
	DefaultURLTemplate string
}

// AvatarResolver escolhe a imagem a exibir para um usuário num tamanho.
// Não tem efeitos colaterais síncronos: renditions ausentes são agendadas.
type AvatarResolver struct {
	deps Deps
	cfg  ResolverConfig
}

// NewAvatarResolver cria um novo AvatarResolver
func NewAvatarResolver(deps Deps, cfg ResolverConfig) *AvatarResolver {
	return &AvatarResolver{deps: deps.withDefaults(), cfg: cfg}
}

// Resolve devolve a rendition, o original ou o avatar padrão
func (r *AvatarResolver) Resolve(ctx context.Context, userID string, size int) (entities.ImageReference, error) {
	if size <= 0 {
		return entities.ImageReference{}, domainerrors.ErrInvalidAvatarSize
	}
	target := r.cfg.Sizes.NearestAtLeast(size)

	upload, err := r.displayUpload(ctx, userID)
	if err != nil {
		return entities.ImageReference{}, err
	}
	if upload == nil {
		return r.observe(entities.DefaultAvatar(target, r.cfg.DefaultURLTemplate)), nil
	}

	if side := upload.SmallestSide(); side > 0 && side < target {
		return r.observe(original(upload)), nil
	}

	exact, err := r.deps.Optimized.FindByUploadAndSize(ctx, upload.ID, target, target)
	if err != nil {
		return entities.ImageReference{}, err
	}
	if exact != nil {
		return r.observe(rendition(exact)), nil
	}

	r.deps.Scheduler.Schedule(upload.ID, target)

	larger, err := r.nearestLarger(ctx, upload.ID, target)
	if err != nil {
		return entities.ImageReference{}, err
	}
	if larger != nil {
		return r.observe(rendition(larger)), nil
	}
	return r.observe(original(upload)), nil
}

// displayUpload segue o ponteiro de exibição; se ele estiver pendente, tenta
// as fontes do registro na ordem de precedência
func (r *AvatarResolver) displayUpload(ctx context.Context, userID string) (*entities.Upload, error) {
	user, err := r.deps.Users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	if user.UploadedAvatarID != nil {
		upload, err := r.deps.Uploads.FindByID(ctx, *user.UploadedAvatarID)
		if err != nil || upload != nil {
			return upload, err
		}
	}

	avatar, err := r.deps.Avatars.FindByUserID(ctx, userID)
	if err != nil || avatar == nil {
		return nil, err
	}

	candidates := make([]string, 0, 2)
	if preferred := entities.SelectDisplayUpload(avatar); preferred != nil {
		candidates = append(candidates, *preferred)
	}
	candidates = append(candidates, avatar.UploadIDs()...)

	for _, id := range candidates {
		if user.UploadedAvatarID != nil && *user.UploadedAvatarID == id {
			continue
		}
		upload, err := r.deps.Uploads.FindByID(ctx, id)
		if err != nil || upload != nil {
			return upload, err
		}
	}
	return nil, nil
}

// nearestLarger devolve a menor rendition quadrada de tamanho configurado acima do alvo
func (r *AvatarResolver) nearestLarger(ctx context.Context, uploadID string, target int) (*entities.OptimizedImage, error) {
	images, err := r.deps.Optimized.ListByUploadIDs(ctx, []string{uploadID})
	if err != nil {
		return nil, err
	}

	var best *entities.OptimizedImage
	for _, img := range images {
		if img.Width != img.Height || img.Width <= target || !r.cfg.Sizes.Contains(img.Width) {
			continue
		}
		if best == nil || img.Width < best.Width {
			best = img
		}
	}
	return best, nil
}

func (r *AvatarResolver) observe(ref entities.ImageReference) entities.ImageReference {
	r.deps.Metrics.ObserveResolve(string(ref.Kind))
	return ref
}

func original(upload *entities.Upload) entities.ImageReference {
	return entities.ImageReference{
		Kind:     entities.ImageKindOriginal,
		UploadID: upload.ID,
		Width:    upload.Width,
		Height:   upload.Height,
		URL:      upload.URL,
	}
}

func rendition(img *entities.OptimizedImage) entities.ImageReference {
	return entities.ImageReference{
		Kind:     entities.ImageKindRendition,
		UploadID: img.UploadID,
		Width:    img.Width,
		Height:   img.Height,
		URL:      img.URL,
	}
}
