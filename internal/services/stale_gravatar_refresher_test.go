package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

type stubRefresher struct {
	mu       sync.Mutex
	outcomes map[string]services.Outcome
	errs     map[string]error
	called   []string
}

func (s *stubRefresher) Refresh(_ context.Context, userID string) (services.FetchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called = append(s.called, userID)
	if err := s.errs[userID]; err != nil {
		return services.FetchResult{}, err
	}
	return services.FetchResult{Outcome: s.outcomes[userID]}, nil
}

func sizesOf(raw string) valueobjects.AvatarSizes {
	return valueobjects.MustParseAvatarSizes(raw)
}

var _ = Describe("StaleGravatarRefresher", func() {
	var (
		h    *harness
		stub *stubRefresher
	)

	BeforeEach(func() {
		h = newHarness()
		stub = &stubRefresher{outcomes: map[string]services.Outcome{}, errs: map[string]error{}}
	})

	newStale := func(enabled bool) *services.StaleGravatarRefresher {
		return services.NewStaleGravatarRefresher(h.deps, stub, services.StaleRefreshConfig{
			Enabled:    enabled,
			StaleAfter: 24 * time.Hour,
			PageSize:   2,
		})
	}

	It("não faz nada quando o download automático está desligado", func() {
		user := h.createUser("mia", "mia@example.com")
		h.setAvatar(user.ID, nil, nil, false)

		report, err := newStale(false).RefreshStale(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report).To(Equal(services.StaleRefreshReport{}))
		Expect(stub.called).To(BeEmpty())
	})

	It("atualiza registros nunca tentados ou vencidos e conta os desfechos", func() {
		never := h.createUser("nina", "nina@example.com")
		old := h.createUser("otto", "otto@example.com")
		fresh := h.createUser("paula", "paula@example.com")
		gone := h.createUser("quim", "quim@example.com")
		for _, u := range []string{never.ID, old.ID, fresh.ID, gone.ID} {
			h.setAvatar(u, nil, nil, false)
		}
		Expect(h.avatars.TouchGravatarAttempt(h.ctx, old.ID, h.now.Add(-48*time.Hour))).To(Succeed())
		Expect(h.avatars.TouchGravatarAttempt(h.ctx, fresh.ID, h.now.Add(-time.Hour))).To(Succeed())

		stub.outcomes[never.ID] = services.OutcomeSuccess
		stub.outcomes[old.ID] = services.OutcomeTransportError
		stub.errs[gone.ID] = domainerrors.ErrUserNotFound

		report, err := newStale(true).RefreshStale(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stub.called).To(ConsistOf(never.ID, old.ID, gone.ID))
		Expect(report.Attempted).To(Equal(3))
		Expect(report.Succeeded).To(Equal(1))
		Expect(report.TransportErrors).To(Equal(1))
		Expect(report.Failed).To(Equal(1))
	})

	It("interrompe quando o contexto é cancelado", func() {
		user := h.createUser("rui", "rui@example.com")
		h.setAvatar(user.ID, nil, nil, false)
		stub.errs[user.ID] = errors.New("não deveria ser chamado")

		ctx, cancel := context.WithCancel(h.ctx)
		cancel()

		_, err := newStale(true).RefreshStale(ctx)
		Expect(err).To(HaveOccurred())
		Expect(stub.called).To(BeEmpty())
	})
})
