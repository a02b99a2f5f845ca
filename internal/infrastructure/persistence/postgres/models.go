package postgres

// UserModel é o model GORM para usuários
type UserModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	Email            *string `gorm:"type:varchar(255);uniqueIndex"`
	Username         string  `gorm:"type:varchar(60);uniqueIndex;not null"`
	UploadedAvatarID *string `gorm:"type:uuid;index"`
	CreatedAt        int64   `gorm:"autoCreateTime;index"`
	UpdatedAt        int64   `gorm:"autoUpdateTime"`
	DeletedAt        *int64  `gorm:"index"` // Soft delete
}

func (UserModel) TableName() string {
	return "users"
}

// UserAvatarModel é o model GORM para registros de avatar
type UserAvatarModel struct {
	ID                          string  `gorm:"type:uuid;primaryKey"`
	UserID                      string  `gorm:"type:uuid;uniqueIndex;not null"`
	GravatarUploadID            *string `gorm:"type:uuid;index"`
	CustomUploadID              *string `gorm:"type:uuid;index"`
	PreferGravatar              bool    `gorm:"not null;default:false"`
	LastGravatarDownloadAttempt *int64  `gorm:"index"`
	CreatedAt                   int64   `gorm:"autoCreateTime"`
	UpdatedAt                   int64   `gorm:"autoUpdateTime"`
}

func (UserAvatarModel) TableName() string {
	return "user_avatars"
}

// UploadModel é o model GORM para uploads
type UploadModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	UserID           string `gorm:"type:uuid;index;not null"`
	SHA256           string `gorm:"column:sha256;type:varchar(64);index;not null"`
	StorageKey       string `gorm:"type:varchar(255);not null"`
	OriginalFilename string `gorm:"type:varchar(255);not null"`
	Extension        string `gorm:"type:varchar(16)"`
	ContentType      string `gorm:"type:varchar(64)"`
	Filesize         int64  `gorm:"not null"`
	Width            int
	Height           int
	URL              string `gorm:"column:url;type:varchar(500);not null"`
	Origin           string `gorm:"type:varchar(1000)"`
	Kind             string `gorm:"type:varchar(32);index;not null"`
	CreatedAt        int64  `gorm:"autoCreateTime;index"`
}

func (UploadModel) TableName() string {
	return "uploads"
}

// OptimizedImageModel é o model GORM para renditions
type OptimizedImageModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UploadID   string `gorm:"type:uuid;not null;uniqueIndex:idx_optimized_images_upload_size"`
	Width      int    `gorm:"not null;uniqueIndex:idx_optimized_images_upload_size"`
	Height     int    `gorm:"not null;uniqueIndex:idx_optimized_images_upload_size"`
	SHA256     string `gorm:"column:sha256;type:varchar(64);index;not null"`
	StorageKey string `gorm:"type:varchar(255);not null"`
	Extension  string `gorm:"type:varchar(16)"`
	Filesize   int64
	URL        string `gorm:"column:url;type:varchar(500);not null"`
	CreatedAt  int64  `gorm:"autoCreateTime"`
}

func (OptimizedImageModel) TableName() string {
	return "optimized_images"
}

// UploadReferenceModel é o model GORM para referências externas a uploads
type UploadReferenceModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UploadID   string `gorm:"type:uuid;index;not null"`
	TargetType string `gorm:"type:varchar(100);not null"`
	TargetID   string `gorm:"type:varchar(100);not null"`
	CreatedAt  int64  `gorm:"autoCreateTime"`
}

func (UploadReferenceModel) TableName() string {
	return "upload_references"
}

// AllModels lista os models migrados por AutoMigrate
func AllModels() []any {
	return []any{
		&UserModel{},
		&UserAvatarModel{},
		&UploadModel{},
		&OptimizedImageModel{},
		&UploadReferenceModel{},
	}
}
