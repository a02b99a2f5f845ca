package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
)

// OptimizedImageRepository implementa repositories.OptimizedImageRepository
type OptimizedImageRepository struct {
	db *gorm.DB
}

// NewOptimizedImageRepository cria um novo OptimizedImageRepository
func NewOptimizedImageRepository(db *gorm.DB) repositories.OptimizedImageRepository {
	return &OptimizedImageRepository{db: db}
}

func (r *OptimizedImageRepository) Create(ctx context.Context, image *entities.OptimizedImage) (*entities.OptimizedImage, error) {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	model := r.toModel(image)

	db := r.getDB(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "upload_id"}, {Name: "width"}, {Name: "height"}},
		DoNothing: true,
	}).Create(model).Error; err != nil {
		return nil, err
	}

	return r.FindByUploadAndSize(ctx, image.UploadID, image.Width, image.Height)
}

func (r *OptimizedImageRepository) FindByUploadAndSize(ctx context.Context, uploadID string, width, height int) (*entities.OptimizedImage, error) {
	var model OptimizedImageModel

	db := r.getDB(ctx)
	if err := db.Where("upload_id = ? AND width = ? AND height = ?", uploadID, width, height).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.toEntity(&model), nil
}

func (r *OptimizedImageRepository) ListByUploadIDs(ctx context.Context, uploadIDs []string) ([]*entities.OptimizedImage, error) {
	if len(uploadIDs) == 0 {
		return nil, nil
	}

	var models []*OptimizedImageModel
	db := r.getDB(ctx)
	if err := db.Where("upload_id IN ?", uploadIDs).
		Order("upload_id ASC, width ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	images := make([]*entities.OptimizedImage, 0, len(models))
	for _, model := range models {
		images = append(images, r.toEntity(model))
	}
	return images, nil
}

func (r *OptimizedImageRepository) Delete(ctx context.Context, id string) error {
	db := r.getDB(ctx)
	return db.Where("id = ?", id).Delete(&OptimizedImageModel{}).Error
}

func (r *OptimizedImageRepository) CountBySHA256(ctx context.Context, sha256 string) (int64, error) {
	var count int64
	db := r.getDB(ctx)
	err := db.Model(&OptimizedImageModel{}).Where("sha256 = ?", sha256).Count(&count).Error
	return count, err
}

// getDB extrai DB do contexto (para suportar transações)
func (r *OptimizedImageRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// Conversores
func (r *OptimizedImageRepository) toModel(image *entities.OptimizedImage) *OptimizedImageModel {
	return &OptimizedImageModel{
		ID:         image.ID,
		UploadID:   image.UploadID,
		Width:      image.Width,
		Height:     image.Height,
		SHA256:     image.SHA256,
		StorageKey: image.StorageKey,
		Extension:  image.Extension,
		Filesize:   image.Filesize,
		URL:        image.URL,
	}
}

func (r *OptimizedImageRepository) toEntity(model *OptimizedImageModel) *entities.OptimizedImage {
	return &entities.OptimizedImage{
		ID:         model.ID,
		UploadID:   model.UploadID,
		Width:      model.Width,
		Height:     model.Height,
		SHA256:     model.SHA256,
		StorageKey: model.StorageKey,
		Extension:  model.Extension,
		Filesize:   model.Filesize,
		URL:        model.URL,
	}
}
