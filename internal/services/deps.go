// Package services contém as regras do ciclo de vida de avatar: resolução,
// atualização do gravatar, importação por URL, preferências e manutenção.
package services

import (
	"context"
	"time"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
)

// Deps agrupa os colaboradores compartilhados pelos serviços de avatar.
// Clock, Events, Metrics e Locks são opcionais.
type Deps struct {
	Users      repositories.UserRepository
	Avatars    repositories.UserAvatarRepository
	Uploads    repositories.UploadRepository
	Optimized  repositories.OptimizedImageRepository
	Store      ports.ContentStore
	Fetcher    ports.RemoteFetcher
	Renditions ports.RenditionDeriver
	Scheduler  ports.RenditionScheduler
	UoW        ports.UnitOfWork
	Clock      ports.Clock
	Events     ports.EventPublisher
	Metrics    ports.AvatarMetrics
	Locks      *UserLocks
	Logger     ports.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = ports.SystemClock
	}
	if d.Events == nil {
		d.Events = nopEvents{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Scheduler == nil {
		d.Scheduler = nopScheduler{}
	}
	if d.Locks == nil {
		d.Locks = NewUserLocks()
	}
	return d
}

// publishChanged publica o estado atual do avatar; falhas só são registradas
func publishChanged(ctx context.Context, d Deps, user *entities.User, avatar *entities.UserAvatar, source string) {
	event := ports.AvatarChangedEvent{
		UserID:           user.ID,
		UploadedAvatarID: user.UploadedAvatarID,
		GravatarUploadID: avatar.GravatarUploadID,
		CustomUploadID:   avatar.CustomUploadID,
		Source:           source,
		OccurredAt:       d.Clock.Now(),
	}
	if err := d.Events.PublishAvatarChanged(ctx, event); err != nil {
		d.Logger.Warn("failed to publish avatar change", "user_id", user.ID, "source", source, "error", err)
	}
}

type nopEvents struct{}

func (nopEvents) PublishAvatarChanged(context.Context, ports.AvatarChangedEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(string, string) {}
func (nopMetrics) ObserveResolve(string)       {}
func (nopMetrics) ObserveSweep(string, int)    {}

type nopScheduler struct{}

func (nopScheduler) Schedule(string, int) {}

func timePtr(t time.Time) *time.Time {
	return &t
}
