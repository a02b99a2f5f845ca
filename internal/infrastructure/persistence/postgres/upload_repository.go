package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
)

// UploadRepository implementa repositories.UploadRepository
type UploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository cria um novo UploadRepository
func NewUploadRepository(db *gorm.DB) repositories.UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(ctx context.Context, upload *entities.Upload) error {
	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	model := r.toModel(upload)

	db := r.getDB(ctx)
	if err := db.Create(model).Error; err != nil {
		return err
	}

	upload.CreatedAt = time.Unix(model.CreatedAt, 0)
	return nil
}

func (r *UploadRepository) FindByID(ctx context.Context, id string) (*entities.Upload, error) {
	var model UploadModel

	db := r.getDB(ctx)
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.toEntity(&model), nil
}

func (r *UploadRepository) FindByIDs(ctx context.Context, ids []string) ([]*entities.Upload, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []*UploadModel
	db := r.getDB(ctx)
	if err := db.Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	return r.toEntities(models), nil
}

func (r *UploadRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []string
	db := r.getDB(ctx)
	err := db.Model(&UploadModel{}).Where("id IN ?", ids).Pluck("id", &existing).Error
	return existing, err
}

func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	db := r.getDB(ctx)
	return db.Where("id = ?", id).Delete(&UploadModel{}).Error
}

func (r *UploadRepository) CountBySHA256(ctx context.Context, sha256 string) (int64, error) {
	var count int64
	db := r.getDB(ctx)
	err := db.Model(&UploadModel{}).Where("sha256 = ?", sha256).Count(&count).Error
	return count, err
}

func (r *UploadRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	db := r.getDB(ctx)
	err := db.Model(&UploadModel{}).Count(&count).Error
	return count, err
}

func (r *UploadRepository) ListAvatarUploads(ctx context.Context, afterID string, createdBefore time.Time, limit int) ([]*entities.Upload, error) {
	var models []*UploadModel

	db := r.getDB(ctx)
	query := db.Model(&UploadModel{}).
		Where("kind IN ?", []string{string(entities.UploadKindGravatar), string(entities.UploadKindCustomAvatar)}).
		Where("created_at < ?", createdBefore.Unix())
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if limit < 1 {
		limit = 500
	}

	if err := query.Order("id ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	return r.toEntities(models), nil
}

func (r *UploadRepository) CreateReference(ctx context.Context, ref *entities.UploadReference) error {
	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	model := &UploadReferenceModel{
		ID:         ref.ID,
		UploadID:   ref.UploadID,
		TargetType: ref.TargetType,
		TargetID:   ref.TargetID,
	}

	db := r.getDB(ctx)
	if err := db.Create(model).Error; err != nil {
		return err
	}

	ref.CreatedAt = time.Unix(model.CreatedAt, 0)
	return nil
}

func (r *UploadRepository) ReferencedIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var referenced []string
	db := r.getDB(ctx)
	if err := db.Model(&UploadReferenceModel{}).
		Where("upload_id IN ?", ids).
		Pluck("upload_id", &referenced).Error; err != nil {
		return nil, err
	}
	return distinct(referenced), nil
}

// getDB extrai DB do contexto (para suportar transações)
func (r *UploadRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// Conversores
func (r *UploadRepository) toModel(upload *entities.Upload) *UploadModel {
	model := &UploadModel{
		ID:               upload.ID,
		UserID:           upload.UserID,
		SHA256:           upload.SHA256,
		StorageKey:       upload.StorageKey,
		OriginalFilename: upload.OriginalFilename,
		Extension:        upload.Extension,
		ContentType:      upload.ContentType,
		Filesize:         upload.Filesize,
		Width:            upload.Width,
		Height:           upload.Height,
		URL:              upload.URL,
		Origin:           upload.Origin,
		Kind:             string(upload.Kind),
	}
	if !upload.CreatedAt.IsZero() {
		model.CreatedAt = upload.CreatedAt.Unix()
	}
	return model
}

func (r *UploadRepository) toEntity(model *UploadModel) *entities.Upload {
	return &entities.Upload{
		ID:               model.ID,
		UserID:           model.UserID,
		SHA256:           model.SHA256,
		StorageKey:       model.StorageKey,
		OriginalFilename: model.OriginalFilename,
		Extension:        model.Extension,
		ContentType:      model.ContentType,
		Filesize:         model.Filesize,
		Width:            model.Width,
		Height:           model.Height,
		URL:              model.URL,
		Origin:           model.Origin,
		Kind:             entities.UploadKind(model.Kind),
		CreatedAt:        time.Unix(model.CreatedAt, 0),
	}
}

func (r *UploadRepository) toEntities(models []*UploadModel) []*entities.Upload {
	uploads := make([]*entities.Upload, 0, len(models))
	for _, model := range models {
		uploads = append(uploads, r.toEntity(model))
	}
	return uploads
}
