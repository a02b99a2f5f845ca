package entities

import "time"

// UploadKind identifica a origem de um upload
type UploadKind string

const (
	UploadKindGravatar     UploadKind = "gravatar"
	UploadKindCustomAvatar UploadKind = "custom_avatar"
	UploadKindAttachment   UploadKind = "attachment"
)

// IsAvatar indica se o upload foi criado pelo ciclo de vida de avatar
func (k UploadKind) IsAvatar() bool {
	return k == UploadKindGravatar || k == UploadKindCustomAvatar
}

// Upload representa uma imagem armazenada. O conteúdo é endereçado pelo
// SHA256 e pode ser compartilhado entre uploads.
type Upload struct {
	ID               string
	UserID           string
	SHA256           string
	StorageKey       string
	OriginalFilename string
	Extension        string
	ContentType      string
	Filesize         int64
	Width            int
	Height           int
	URL              string
	Origin           string
	Kind             UploadKind
	CreatedAt        time.Time
}

// SmallestSide retorna o menor lado conhecido da imagem (0 se desconhecido)
func (u *Upload) SmallestSide() int {
	if u.Width <= 0 || u.Height <= 0 {
		return 0
	}
	return min(u.Width, u.Height)
}

// UploadReference é uma referência viva, fora do avatar, a um upload
// (anexo de post, fundo de perfil...).
type UploadReference struct {
	ID         string
	UploadID   string
	TargetType string
	TargetID   string
	CreatedAt  time.Time
}
