package services_test

import (
	"bytes"
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/logging"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/persistence/postgres"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/renditions"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage"
	"github.com/rafabene/avantpro-avatars/internal/infrastructure/storage/blob"
	"github.com/rafabene/avantpro-avatars/internal/services"
	"github.com/rafabene/avantpro-avatars/internal/testutil"
)

type scheduled struct {
	uploadID string
	size     int
}

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []scheduled
}

func (s *recordingScheduler) Schedule(uploadID string, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduled{uploadID: uploadID, size: size})
}

func (s *recordingScheduler) Jobs() []scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scheduled(nil), s.jobs...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.AvatarChangedEvent
}

func (p *recordingPublisher) PublishAvatarChanged(_ context.Context, event ports.AvatarChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []ports.AvatarChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.AvatarChangedEvent(nil), p.events...)
}

// harness monta os serviços sobre SQLite, blobs em memória e um fetcher programável
type harness struct {
	ctx       context.Context
	now       time.Time
	users     repositories.UserRepository
	avatars   repositories.UserAvatarRepository
	uploads   repositories.UploadRepository
	optimized repositories.OptimizedImageRepository
	blobs     *blob.Memstore
	deriver   *renditions.Deriver
	fetcher   *testutil.FakeFetcher
	scheduler *recordingScheduler
	events    *recordingPublisher
	deps      services.Deps
}

type harnessOption func(*harnessOptions)

type harnessOptions struct {
	uploadsEnabled bool
}

func withUploadsDisabled() harnessOption {
	return func(o *harnessOptions) { o.uploadsEnabled = false }
}

func newHarness(opts ...harnessOption) *harness {
	options := harnessOptions{uploadsEnabled: true}
	for _, opt := range opts {
		opt(&options)
	}

	db := testutil.NewDB(GinkgoT())
	blobs, err := blob.NewMemstore("/uploads")
	Expect(err).NotTo(HaveOccurred())

	logger := logging.NewNopLogger()
	h := &harness{
		ctx:       context.Background(),
		now:       time.Now().UTC().Truncate(time.Second),
		users:     postgres.NewUserRepository(db),
		avatars:   postgres.NewUserAvatarRepository(db),
		uploads:   postgres.NewUploadRepository(db),
		optimized: postgres.NewOptimizedImageRepository(db),
		blobs:     blobs,
		fetcher:   &testutil.FakeFetcher{},
		scheduler: &recordingScheduler{},
		events:    &recordingPublisher{},
	}
	uow := postgres.NewUnitOfWork(db)
	h.deriver = renditions.NewDeriver(blobs, h.uploads, h.optimized, logger)

	h.deps = services.Deps{
		Users:      h.users,
		Avatars:    h.avatars,
		Uploads:    h.uploads,
		Optimized:  h.optimized,
		Store:      storage.NewUploadStore(blobs, h.uploads, h.optimized, h.avatars, h.users, uow, options.uploadsEnabled, logger),
		Fetcher:    h.fetcher,
		Renditions: h.deriver,
		Scheduler:  h.scheduler,
		UoW:        uow,
		Clock:      ports.ClockFunc(func() time.Time { return h.now }),
		Events:     h.events,
		Logger:     logger,
	}
	return h
}

func (h *harness) refresher() *services.GravatarRefresher {
	return services.NewGravatarRefresher(h.deps, services.GravatarConfig{
		BaseURL:     "www.gravatar.com",
		Sizes:       valueobjects.MustParseAvatarSizes("24|48|96|360"),
		MaxBytes:    1 << 20,
		SystemEmail: "system@avantpro.local",
	})
}

func (h *harness) importer() *services.URLImporter {
	return services.NewURLImporter(h.deps, 1<<20)
}

func (h *harness) sweeper(sizes string) *services.ConsistencySweeper {
	return services.NewConsistencySweeper(h.deps, services.SweeperConfig{
		Sizes:                 valueobjects.MustParseAvatarSizes(sizes),
		PageSize:              2,
		MaxRenditionsToRemove: 100,
		ReclaimGracePeriod:    48 * time.Hour,
	})
}

func (h *harness) createUser(username, email string) *entities.User {
	GinkgoHelper()

	user := &entities.User{Username: username}
	if email != "" {
		parsed, err := valueobjects.NewEmail(email)
		Expect(err).NotTo(HaveOccurred())
		user.Email = parsed
	}
	Expect(h.users.Create(h.ctx, user)).To(Succeed())
	return user
}

func (h *harness) storeUpload(ownerID string, kind entities.UploadKind, size int) *entities.Upload {
	GinkgoHelper()

	upload, err := h.deps.Store.Store(h.ctx, bytes.NewReader(testutil.PNG(GinkgoT(), size, size)), ports.StoreRequest{
		OwnerUserID: ownerID,
		Filename:    "avatar.png",
		Kind:        kind,
	})
	Expect(err).NotTo(HaveOccurred())
	return upload
}

func (h *harness) setAvatar(userID string, gravatar, custom *entities.Upload, preferGravatar bool) *entities.UserAvatar {
	GinkgoHelper()

	avatar, err := h.avatars.FindOrCreateByUserID(h.ctx, userID)
	Expect(err).NotTo(HaveOccurred())
	avatar.GravatarUploadID = uploadID(gravatar)
	avatar.CustomUploadID = uploadID(custom)
	avatar.PreferGravatar = preferGravatar
	Expect(h.avatars.Update(h.ctx, avatar)).To(Succeed())
	return avatar
}

func (h *harness) setPointer(userID string, upload *entities.Upload) {
	GinkgoHelper()
	Expect(h.users.SetUploadedAvatar(h.ctx, userID, uploadID(upload))).To(Succeed())
}

func (h *harness) avatarOf(userID string) *entities.UserAvatar {
	GinkgoHelper()

	avatar, err := h.avatars.FindByUserID(h.ctx, userID)
	Expect(err).NotTo(HaveOccurred())
	return avatar
}

func (h *harness) pointerOf(userID string) *string {
	GinkgoHelper()

	user, err := h.users.FindByID(h.ctx, userID)
	Expect(err).NotTo(HaveOccurred())
	Expect(user).NotTo(BeNil())
	return user.UploadedAvatarID
}

func (h *harness) uploadCount() int64 {
	GinkgoHelper()

	count, err := h.uploads.Count(h.ctx)
	Expect(err).NotTo(HaveOccurred())
	return count
}

func uploadID(u *entities.Upload) *string {
	if u == nil {
		return nil
	}
	id := u.ID
	return &id
}

func ptr[T any](v T) *T {
	return &v
}
