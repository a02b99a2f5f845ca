package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
)

// UserAvatarRepository implementa repositories.UserAvatarRepository
type UserAvatarRepository struct {
	db *gorm.DB
}

// NewUserAvatarRepository cria um novo UserAvatarRepository
func NewUserAvatarRepository(db *gorm.DB) repositories.UserAvatarRepository {
	return &UserAvatarRepository{db: db}
}

func (r *UserAvatarRepository) FindByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error) {
	var model UserAvatarModel

	db := r.getDB(ctx)
	if err := db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.toEntity(&model), nil
}

func (r *UserAvatarRepository) FindOrCreateByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error) {
	db := r.getDB(ctx)

	// Índice único em user_id: duas chamadas concorrentes geram um único registro
	model := UserAvatarModel{ID: uuid.NewString(), UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&model).Error; err != nil {
		return nil, err
	}

	return r.FindByUserID(ctx, userID)
}

func (r *UserAvatarRepository) LockByUserID(ctx context.Context, userID string) (*entities.UserAvatar, error) {
	var model UserAvatarModel

	db := r.getDB(ctx)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.toEntity(&model), nil
}

func (r *UserAvatarRepository) Update(ctx context.Context, avatar *entities.UserAvatar) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"gravatar_upload_id":             nullable(avatar.GravatarUploadID),
		"custom_upload_id":               nullable(avatar.CustomUploadID),
		"prefer_gravatar":                avatar.PreferGravatar,
		"last_gravatar_download_attempt": nullableUnix(avatar.LastGravatarDownloadAttempt),
	}

	return db.Model(&UserAvatarModel{}).
		Where("id = ?", avatar.ID).
		Updates(updates).Error
}

func (r *UserAvatarRepository) TouchGravatarAttempt(ctx context.Context, userID string, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&UserAvatarModel{}).
		Where("user_id = ?", userID).
		Update("last_gravatar_download_attempt", at.Unix()).Error
}

func (r *UserAvatarRepository) ClearUpload(ctx context.Context, uploadID string) (int64, error) {
	db := r.getDB(ctx)

	gravatar := db.Model(&UserAvatarModel{}).
		Where("gravatar_upload_id = ?", uploadID).
		Update("gravatar_upload_id", gorm.Expr("NULL"))
	if gravatar.Error != nil {
		return 0, gravatar.Error
	}

	custom := db.Model(&UserAvatarModel{}).
		Where("custom_upload_id = ?", uploadID).
		Update("custom_upload_id", gorm.Expr("NULL"))
	if custom.Error != nil {
		return gravatar.RowsAffected, custom.Error
	}

	return gravatar.RowsAffected + custom.RowsAffected, nil
}

func (r *UserAvatarRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	db := r.getDB(ctx)
	result := db.Where("id IN ?", ids).Delete(&UserAvatarModel{})
	return result.RowsAffected, result.Error
}

func (r *UserAvatarRepository) ReferencedUploadIDs(ctx context.Context, uploadIDs []string) ([]string, error) {
	if len(uploadIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var gravatar []string
	if err := db.Model(&UserAvatarModel{}).
		Where("gravatar_upload_id IN ?", uploadIDs).
		Pluck("gravatar_upload_id", &gravatar).Error; err != nil {
		return nil, err
	}

	var custom []string
	if err := db.Model(&UserAvatarModel{}).
		Where("custom_upload_id IN ?", uploadIDs).
		Pluck("custom_upload_id", &custom).Error; err != nil {
		return nil, err
	}

	return distinct(append(gravatar, custom...)), nil
}

func (r *UserAvatarRepository) List(ctx context.Context, filters repositories.UserAvatarFilters) ([]*entities.UserAvatar, error) {
	var models []*UserAvatarModel

	db := r.getDB(ctx)
	query := db.Model(&UserAvatarModel{})

	if filters.AfterID != "" {
		query = query.Where("id > ?", filters.AfterID)
	}
	if filters.AttemptedBefore != nil {
		query = query.Where(
			"(last_gravatar_download_attempt IS NULL OR last_gravatar_download_attempt < ?)",
			filters.AttemptedBefore.Unix(),
		)
	}

	// Paginação por keyset
	limit := filters.Limit
	if limit < 1 {
		limit = 500
	}
	if limit > 5000 {
		limit = 5000
	}
	query = query.Order("id ASC").Limit(limit)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	avatars := make([]*entities.UserAvatar, 0, len(models))
	for _, model := range models {
		avatars = append(avatars, r.toEntity(model))
	}
	return avatars, nil
}

// getDB extrai DB do contexto (para suportar transações)
func (r *UserAvatarRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// Conversores
func (r *UserAvatarRepository) toEntity(model *UserAvatarModel) *entities.UserAvatar {
	var lastAttempt *time.Time
	if model.LastGravatarDownloadAttempt != nil {
		ts := time.Unix(*model.LastGravatarDownloadAttempt, 0).UTC()
		lastAttempt = &ts
	}

	return &entities.UserAvatar{
		ID:                          model.ID,
		UserID:                      model.UserID,
		GravatarUploadID:            model.GravatarUploadID,
		CustomUploadID:              model.CustomUploadID,
		PreferGravatar:              model.PreferGravatar,
		LastGravatarDownloadAttempt: lastAttempt,
		CreatedAt:                   time.Unix(model.CreatedAt, 0),
		UpdatedAt:                   time.Unix(model.UpdatedAt, 0),
	}
}

func nullable(value *string) any {
	if value == nil {
		return gorm.Expr("NULL")
	}
	return *value
}

func nullableUnix(value *time.Time) any {
	if value == nil {
		return gorm.Expr("NULL")
	}
	return value.Unix()
}
