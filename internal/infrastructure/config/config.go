package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

// Config contém todas as configurações da aplicação
type Config struct {
	Env      string `validate:"required"`
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	Avatars  AvatarsConfig
	Uploads  UploadsConfig
	S3       S3Config
	Fetcher  FetcherConfig
	Sweeper  SweeperConfig
	NATS     NATSConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port    string `validate:"required"`
	Host    string
	BaseURL string // URL base da API para construir URIs RFC 7807
}

type DatabaseConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	User        string
	Password    string
	DBName      string `validate:"required"`
	SSLMode     string
	MaxConns    int `validate:"min=1"`
	MinConns    int `validate:"min=0"`
	MaxIdleTime int
}

type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type CORSConfig struct {
	AllowedOrigins string
}

// AvatarsConfig agrupa as configurações do ciclo de vida de avatar
type AvatarsConfig struct {
	SizesRaw                       string `validate:"required"`
	Sizes                          valueobjects.AvatarSizes
	DefaultURLTemplate             string `validate:"required,contains={size}"`
	GravatarBaseURL                string `validate:"required,hostname_port|hostname"`
	MaxImageSizeKB                 int    `validate:"min=1"`
	AutomaticallyDownloadGravatars bool
	SystemEmail                    string `validate:"omitempty,email"`
	RenditionWorkers               int    `validate:"min=1"`
	RenditionQueueSize             int    `validate:"min=1"`
}

// MaxImageBytes é o limite de tamanho de uma imagem remota
func (a *AvatarsConfig) MaxImageBytes() int64 {
	return int64(a.MaxImageSizeKB) * 1024
}

type UploadsConfig struct {
	Enabled       bool
	Backend       string `validate:"oneof=local s3 memory"`
	LocalRoot     string
	PublicBaseURL string `validate:"required"`
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

type FetcherConfig struct {
	Timeout              time.Duration `validate:"min=1ms"`
	AllowPrivateNetworks bool
	MaxRedirects         int `validate:"min=0,max=20"`
	UserAgent            string
}

type SweeperConfig struct {
	PageSize              int           `validate:"min=1,max=5000"`
	MaxRenditionsToRemove int           `validate:"min=0"`
	ReclaimGracePeriod    time.Duration `validate:"min=0s"`
	Schedule              string        `validate:"required"`
	StaleRefreshSchedule  string        `validate:"required"`
	StaleAfter            time.Duration `validate:"min=0s"`
	RefreshRatePerSecond  float64       `validate:"gt=0"`
}

type NATSConfig struct {
	URL     string
	Subject string `validate:"required"`
}

type MetricsConfig struct {
	Enabled bool
}

var defaults = map[string]any{
	"ENV":                  "development",
	"PORT":                 "8080",
	"HOST":                 "0.0.0.0",
	"API_BASE_URL":         "http://localhost:8080",
	"DB_HOST":              "localhost",
	"DB_PORT":              5432,
	"DB_USER":              "postgres",
	"DB_PASS":              "postgres",
	"DB_NAME":              "avatars",
	"DB_SSL_MODE":          "disable",
	"DB_MAX_CONNS":         25,
	"DB_MIN_CONNS":         5,
	"DB_MAX_IDLE_TIME":     300,
	"LOG_LEVEL":            "info",
	"CORS_ALLOWED_ORIGINS": "*",

	"AVATAR_SIZES":                     "24|48|72|96|120|144|240|360",
	"AVATAR_DEFAULT_URL_TEMPLATE":      "/images/avatar.png?s={size}",
	"GRAVATAR_BASE_URL":                "www.gravatar.com",
	"MAX_IMAGE_SIZE_KB":                4096,
	"AUTOMATICALLY_DOWNLOAD_GRAVATARS": true,
	"SYSTEM_USER_EMAIL":                "",
	"RENDITION_WORKERS":                2,
	"RENDITION_QUEUE_SIZE":             256,

	"UPLOADS_ENABLED":         true,
	"UPLOADS_BACKEND":         "local",
	"UPLOADS_LOCAL_ROOT":      "./uploads",
	"UPLOADS_PUBLIC_BASE_URL": "/uploads",

	"S3_REGION":         "us-east-1",
	"S3_USE_PATH_STYLE": false,

	"FETCHER_TIMEOUT":                "15s",
	"FETCHER_ALLOW_PRIVATE_NETWORKS": false,
	"FETCHER_MAX_REDIRECTS":          5,
	"FETCHER_USER_AGENT":             "avantpro-avatars/1.0",

	"SWEEPER_PAGE_SIZE":                500,
	"SWEEPER_MAX_RENDITIONS_TO_REMOVE": 20000,
	"SWEEPER_RECLAIM_GRACE_PERIOD":     "48h",
	"SWEEPER_SCHEDULE":                 "@every 1h",
	"SWEEPER_STALE_REFRESH_SCHEDULE":   "@every 6h",
	"SWEEPER_STALE_AFTER":              "168h",
	"SWEEPER_REFRESH_RATE_PER_SECOND":  2.0,

	"NATS_URL":     "",
	"NATS_SUBJECT": "avatars.changed",

	"METRICS_ENABLED": true,
}

// Load carrega as configurações do ambiente. Um arquivo .env, se existir,
// é carregado antes sem sobrescrever variáveis já definidas.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading env file %s: %w", file, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		Env: v.GetString("ENV"),
		Server: ServerConfig{
			Port:    v.GetString("PORT"),
			Host:    v.GetString("HOST"),
			BaseURL: v.GetString("API_BASE_URL"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASS"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSL_MODE"),
			MaxConns:    v.GetInt("DB_MAX_CONNS"),
			MinConns:    v.GetInt("DB_MIN_CONNS"),
			MaxIdleTime: v.GetInt("DB_MAX_IDLE_TIME"),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Avatars: AvatarsConfig{
			SizesRaw:                       v.GetString("AVATAR_SIZES"),
			DefaultURLTemplate:             v.GetString("AVATAR_DEFAULT_URL_TEMPLATE"),
			GravatarBaseURL:                v.GetString("GRAVATAR_BASE_URL"),
			MaxImageSizeKB:                 v.GetInt("MAX_IMAGE_SIZE_KB"),
			AutomaticallyDownloadGravatars: v.GetBool("AUTOMATICALLY_DOWNLOAD_GRAVATARS"),
			SystemEmail:                    v.GetString("SYSTEM_USER_EMAIL"),
			RenditionWorkers:               v.GetInt("RENDITION_WORKERS"),
			RenditionQueueSize:             v.GetInt("RENDITION_QUEUE_SIZE"),
		},
		Uploads: UploadsConfig{
			Enabled:       v.GetBool("UPLOADS_ENABLED"),
			Backend:       strings.ToLower(v.GetString("UPLOADS_BACKEND")),
			LocalRoot:     v.GetString("UPLOADS_LOCAL_ROOT"),
			PublicBaseURL: v.GetString("UPLOADS_PUBLIC_BASE_URL"),
		},
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
			PublicBaseURL:   v.GetString("S3_PUBLIC_BASE_URL"),
		},
		Fetcher: FetcherConfig{
			Timeout:              v.GetDuration("FETCHER_TIMEOUT"),
			AllowPrivateNetworks: v.GetBool("FETCHER_ALLOW_PRIVATE_NETWORKS"),
			MaxRedirects:         v.GetInt("FETCHER_MAX_REDIRECTS"),
			UserAgent:            v.GetString("FETCHER_USER_AGENT"),
		},
		Sweeper: SweeperConfig{
			PageSize:              v.GetInt("SWEEPER_PAGE_SIZE"),
			MaxRenditionsToRemove: v.GetInt("SWEEPER_MAX_RENDITIONS_TO_REMOVE"),
			ReclaimGracePeriod:    v.GetDuration("SWEEPER_RECLAIM_GRACE_PERIOD"),
			Schedule:              v.GetString("SWEEPER_SCHEDULE"),
			StaleRefreshSchedule:  v.GetString("SWEEPER_STALE_REFRESH_SCHEDULE"),
			StaleAfter:            v.GetDuration("SWEEPER_STALE_AFTER"),
			RefreshRatePerSecond:  v.GetFloat64("SWEEPER_REFRESH_RATE_PER_SECOND"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate valida a configuração e resolve os campos derivados
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sizes, err := valueobjects.ParseAvatarSizes(c.Avatars.SizesRaw)
	if err != nil {
		return fmt.Errorf("invalid AVATAR_SIZES: %w", err)
	}
	c.Avatars.Sizes = sizes

	if c.Uploads.Backend == "s3" && c.S3.Bucket == "" {
		return errors.New("invalid configuration: S3_BUCKET is required when UPLOADS_BACKEND=s3")
	}

	return nil
}

// DSN retorna a connection string do PostgreSQL
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
