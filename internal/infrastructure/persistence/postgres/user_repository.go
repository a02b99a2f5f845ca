package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

// UserRepository implementa repositories.UserRepository
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository cria um novo UserRepository
func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	model := r.toModel(user)

	db := r.getDB(ctx)
	if err := db.Create(model).Error; err != nil {
		return err
	}

	user.CreatedAt = time.Unix(model.CreatedAt, 0)
	user.UpdatedAt = time.Unix(model.UpdatedAt, 0)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	var model UserModel

	db := r.getDB(ctx)
	// Soft delete: ignorar registros deletados
	if err := db.Where("id = ? AND deleted_at IS NULL", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.toEntity(&model), nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]*entities.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []*UserModel
	db := r.getDB(ctx)
	if err := db.Where("id IN ? AND deleted_at IS NULL", ids).Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]*entities.User, 0, len(models))
	for _, model := range models {
		users = append(users, r.toEntity(model))
	}
	return users, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	db := r.getDB(ctx)
	// Soft delete: atualizar deleted_at ao invés de deletar
	now := time.Now().Unix()
	return db.Model(&UserModel{}).Where("id = ? AND deleted_at IS NULL", id).Update("deleted_at", now).Error
}

func (r *UserRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []string
	db := r.getDB(ctx)
	err := db.Model(&UserModel{}).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Pluck("id", &existing).Error
	return existing, err
}

func (r *UserRepository) SetUploadedAvatar(ctx context.Context, userID string, uploadID *string) error {
	db := r.getDB(ctx)

	var value any = gorm.Expr("NULL")
	if uploadID != nil {
		value = *uploadID
	}

	return db.Model(&UserModel{}).
		Where("id = ?", userID).
		Update("uploaded_avatar_id", value).Error
}

func (r *UserRepository) ClearUploadedAvatar(ctx context.Context, uploadID string) (int64, error) {
	db := r.getDB(ctx)
	result := db.Model(&UserModel{}).
		Where("uploaded_avatar_id = ?", uploadID).
		Update("uploaded_avatar_id", gorm.Expr("NULL"))
	return result.RowsAffected, result.Error
}

func (r *UserRepository) DisplayedUploadIDs(ctx context.Context, uploadIDs []string) ([]string, error) {
	if len(uploadIDs) == 0 {
		return nil, nil
	}

	var displayed []string
	db := r.getDB(ctx)
	if err := db.Model(&UserModel{}).
		Where("uploaded_avatar_id IN ?", uploadIDs).
		Pluck("uploaded_avatar_id", &displayed).Error; err != nil {
		return nil, err
	}
	return distinct(displayed), nil
}

// getDB extrai DB do contexto (para suportar transações)
func (r *UserRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}

// Conversores
func (r *UserRepository) toModel(user *entities.User) *UserModel {
	var deletedAt *int64
	if user.DeletedAt != nil {
		ts := user.DeletedAt.Unix()
		deletedAt = &ts
	}

	var email *string
	if !user.Email.IsZero() {
		value := user.Email.String()
		email = &value
	}

	model := &UserModel{
		ID:               user.ID,
		Email:            email,
		Username:         user.Username,
		UploadedAvatarID: user.UploadedAvatarID,
		DeletedAt:        deletedAt,
	}
	if !user.CreatedAt.IsZero() {
		model.CreatedAt = user.CreatedAt.Unix()
	}
	return model
}

// toEntity trata email inválido gravado no banco como ausente
func (r *UserRepository) toEntity(model *UserModel) *entities.User {
	var email valueobjects.Email
	if model.Email != nil {
		if parsed, err := valueobjects.NewEmail(*model.Email); err == nil {
			email = parsed
		}
	}

	var deletedAt *time.Time
	if model.DeletedAt != nil {
		ts := time.Unix(*model.DeletedAt, 0)
		deletedAt = &ts
	}

	return &entities.User{
		ID:               model.ID,
		Email:            email,
		Username:         model.Username,
		UploadedAvatarID: model.UploadedAvatarID,
		CreatedAt:        time.Unix(model.CreatedAt, 0),
		UpdatedAt:        time.Unix(model.UpdatedAt, 0),
		DeletedAt:        deletedAt,
	}
}

// distinct remove duplicados preservando a ordem
func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
