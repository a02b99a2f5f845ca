package services

import (
	"context"
	"errors"
	"net/url"
	"path"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

const fetchOpImport = "import"

// ImportOptions ajusta uma importação por URL
type ImportOptions struct {
	// OverrideGravatar move o ponteiro de exibição para o novo upload.
	// nil equivale a true.
	OverrideGravatar *bool
}

func (o ImportOptions) override() bool {
	return o.OverrideGravatar == nil || *o.OverrideGravatar
}

// URLImporter baixa uma imagem arbitrária e a registra como upload próprio
type URLImporter struct {
	deps     Deps
	maxBytes int64
}

// NewURLImporter cria um novo URLImporter
func NewURLImporter(deps Deps, maxBytes int64) *URLImporter {
	return &URLImporter{deps: deps.withDefaults(), maxBytes: maxBytes}
}

// Import busca rawURL e, em caso de sucesso, define o upload próprio do usuário
func (i *URLImporter) Import(ctx context.Context, rawURL, userID string, opts ImportOptions) (FetchResult, error) {
	logger := i.deps.Logger.With("user_id", userID)

	user, err := i.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return FetchResult{}, err
	}
	if user == nil {
		return FetchResult{}, domainerrors.ErrUserNotFound
	}

	download, err := i.deps.Fetcher.Fetch(ctx, rawURL, ports.FetchOptions{
		MaxBytes:        i.maxBytes,
		FollowRedirects: true,
	})
	if err != nil {
		return i.finish(classifyImportError(logger, err)), nil
	}
	defer download.Cleanup()

	upload, err := i.deps.Store.Store(ctx, download.File, ports.StoreRequest{
		OwnerUserID: userID,
		Filename:    filenameFromURL(download.FinalURL),
		Origin:      rawURL,
		Kind:        entities.UploadKindCustomAvatar,
	})
	if err != nil {
		if isUnusablePayload(err) {
			logger.Warn("imported payload rejected", "url", rawURL, "error", err)
			return i.finish(notFound(err)), nil
		}
		return FetchResult{}, err
	}

	unlock := i.deps.Locks.Lock(userID)
	defer unlock()

	var (
		changed bool
		avatar  *entities.UserAvatar
	)
	err = i.deps.UoW.WithTransaction(ctx, func(txCtx context.Context) error {
		locked, err := lockOrCreate(txCtx, i.deps, userID)
		if err != nil {
			return err
		}

		current, err := i.deps.Users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return domainerrors.ErrUserNotFound
		}

		pointer := current.UploadedAvatarID
		move := opts.override() || pointer == nil || !locked.ContainsUpload(pointer)

		locked.CustomUploadID = &upload.ID
		switch {
		case move:
			locked.PreferGravatar = false
		case entities.SameUpload(pointer, locked.GravatarUploadID):
			locked.PreferGravatar = true
		}
		if err := i.deps.Avatars.Update(txCtx, locked); err != nil {
			return err
		}

		if move && !current.DisplaysUpload(&upload.ID) {
			if err := i.deps.Users.SetUploadedAvatar(txCtx, userID, &upload.ID); err != nil {
				return err
			}
			current.UploadedAvatarID = &upload.ID
			changed = true
		}

		user, avatar = current, locked
		return nil
	})
	if err != nil {
		return FetchResult{}, err
	}

	logger.Info("avatar imported", "upload_id", upload.ID, "display_changed", changed)
	publishChanged(ctx, i.deps, user, avatar, fetchOpImport)

	return i.finish(FetchResult{Outcome: OutcomeSuccess, UploadID: upload.ID, Changed: changed}), nil
}

func (i *URLImporter) finish(result FetchResult) FetchResult {
	i.deps.Metrics.ObserveFetch(fetchOpImport, string(result.Outcome))
	return result
}

func classifyImportError(logger ports.Logger, err error) FetchResult {
	switch {
	case domainerrors.IsHTTPStatus(err), errors.Is(err, domainerrors.ErrRemoteTooLarge):
		logger.Debug("nothing to import", "error", err)
		return notFound(err)
	default:
		logger.Warn("avatar import failed", "error", err)
		return transportError(err)
	}
}

func filenameFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "avatar"
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "avatar"
	}
	return name
}
