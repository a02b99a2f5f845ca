package entities

import "time"

// UserAvatar é o registro de avatar, um por usuário. As referências para
// uploads são fracas: o registro não controla o ciclo de vida dos blobs e
// precisa tolerar referências ausentes ou pendentes.
type UserAvatar struct {
	ID                          string
	UserID                      string
	GravatarUploadID            *string
	CustomUploadID              *string
	PreferGravatar              bool // usuário escolheu exibir o gravatar mesmo tendo upload próprio
	LastGravatarDownloadAttempt *time.Time
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// SelectDisplayUpload é a regra de precedência entre as fontes do registro:
// gravatar quando o usuário o prefere (e existe), senão o upload próprio,
// senão o gravatar. Registro nil não seleciona nada.
func SelectDisplayUpload(a *UserAvatar) *string {
	if a == nil {
		return nil
	}
	if a.PreferGravatar && a.GravatarUploadID != nil {
		return a.GravatarUploadID
	}
	if a.CustomUploadID != nil {
		return a.CustomUploadID
	}
	return a.GravatarUploadID
}

// ContainsUpload verifica se o upload é o gravatar ou o upload próprio do registro
func (a *UserAvatar) ContainsUpload(uploadID *string) bool {
	if uploadID == nil {
		return false
	}
	return SameUpload(a.GravatarUploadID, uploadID) || SameUpload(a.CustomUploadID, uploadID)
}

// UploadIDs retorna as referências não nulas do registro
func (a *UserAvatar) UploadIDs() []string {
	ids := make([]string, 0, 2)
	if a.GravatarUploadID != nil {
		ids = append(ids, *a.GravatarUploadID)
	}
	if a.CustomUploadID != nil && !SameUpload(a.CustomUploadID, a.GravatarUploadID) {
		ids = append(ids, *a.CustomUploadID)
	}
	return ids
}

// ClearUpload anula as referências que apontam para o upload e informa se algo mudou
func (a *UserAvatar) ClearUpload(uploadID string) bool {
	changed := false
	if a.GravatarUploadID != nil && *a.GravatarUploadID == uploadID {
		a.GravatarUploadID = nil
		changed = true
	}
	if a.CustomUploadID != nil && *a.CustomUploadID == uploadID {
		a.CustomUploadID = nil
		changed = true
	}
	return changed
}

// DisplaysGravatar indica se o usuário exibe o gravatar atual do registro.
// Ponteiro vazio nunca conta como gravatar.
func (a *UserAvatar) DisplaysGravatar(u *User) bool {
	return u.UploadedAvatarID != nil && SameUpload(u.UploadedAvatarID, a.GravatarUploadID)
}

// SameUpload compara duas referências opcionais de upload
func SameUpload(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
