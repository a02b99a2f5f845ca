package entities

import (
	"errors"
	"time"

	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

var (
	ErrInvalidUserData = errors.New("invalid user data")
)

// SystemUserID é o ID reservado do usuário de sistema
const SystemUserID = "00000000-0000-0000-0000-000000000000"

// User representa a conta dona dos avatares. Apenas os campos usados pelo
// ciclo de vida de avatar fazem parte da entidade.
type User struct {
	ID               string
	Email            valueobjects.Email // zero quando a conta não tem email primário
	Username         string
	UploadedAvatarID *string // ponteiro de exibição: upload mostrado como avatar
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time // Soft delete
}

// IsDeleted verifica se o usuário foi deletado (soft delete)
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// SoftDelete marca o usuário como deletado
func (u *User) SoftDelete() {
	now := time.Now()
	u.DeletedAt = &now
}

// Restore restaura um usuário deletado
func (u *User) Restore() {
	u.DeletedAt = nil
}

// IsSystem indica se é o usuário de sistema
func (u *User) IsSystem() bool {
	return u.ID == SystemUserID
}

// DisplaysUpload verifica se o ponteiro de exibição aponta para o upload
func (u *User) DisplaysUpload(uploadID *string) bool {
	return SameUpload(u.UploadedAvatarID, uploadID)
}

// Validate valida regras de negócio da entidade User
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}

	if len(u.Username) < 2 {
		return errors.New("username must be at least 2 characters")
	}

	return nil
}
