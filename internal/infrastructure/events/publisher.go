package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

// EventTypeAvatarChanged é o event_type dos eventos publicados
const EventTypeAvatarChanged = "avatar.changed"

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher publica eventos de avatar num subject NATS
type NatsPublisher struct {
	conn    natsConn
	nc      *nats.Conn
	subject string
	logger  ports.Logger
}

// NewNatsPublisher conecta ao servidor NATS
func NewNatsPublisher(natsURL, subject string, logger ports.Logger) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("avantpro-avatars"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	logger.Info("connected to nats", "url", nc.ConnectedUrl(), "subject", subject)

	return &NatsPublisher{conn: nc, nc: nc, subject: subject, logger: logger}, nil
}

// PublishAvatarChanged implementa ports.EventPublisher
func (p *NatsPublisher) PublishAvatarChanged(_ context.Context, event ports.AvatarChangedEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("failed to publish avatar event", "user_id", event.UserID, "error", err)
		return fmt.Errorf("failed to publish avatar event: %w", err)
	}

	p.logger.Debug("avatar event published", "subject", p.subject, "user_id", event.UserID, "source", event.Source)
	return nil
}

// Close esvazia o buffer pendente e fecha a conexão
func (p *NatsPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", "error", err)
		p.nc.Close()
	}
}

func encode(event ports.AvatarChangedEvent) ([]byte, error) {
	if event.EventType == "" {
		event.EventType = EventTypeAvatarChanged
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal avatar event: %w", err)
	}
	return data, nil
}

// NopPublisher descarta eventos; usado quando NATS não está configurado
type NopPublisher struct{}

// PublishAvatarChanged implementa ports.EventPublisher
func (NopPublisher) PublishAvatarChanged(context.Context, ports.AvatarChangedEvent) error {
	return nil
}
