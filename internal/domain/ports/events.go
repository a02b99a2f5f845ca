package ports

import (
	"context"
	"time"
)

// AvatarChangedEvent é publicado quando o avatar exibido ou suas fontes mudam
type AvatarChangedEvent struct {
	EventType        string    `json:"event_type"`
	UserID           string    `json:"user_id"`
	UploadedAvatarID *string   `json:"uploaded_avatar_id"`
	GravatarUploadID *string   `json:"gravatar_upload_id"`
	CustomUploadID   *string   `json:"custom_upload_id"`
	Source           string    `json:"source"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// EventPublisher publica eventos de avatar
type EventPublisher interface {
	PublishAvatarChanged(ctx context.Context, event AvatarChangedEvent) error
}
