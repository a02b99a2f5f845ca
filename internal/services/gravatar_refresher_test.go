package services_test

import (
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
	"github.com/rafabene/avantpro-avatars/internal/services"
	"github.com/rafabene/avantpro-avatars/internal/testutil"
)

var _ = Describe("GravatarRefresher", func() {
	var (
		h    *harness
		user *entities.User
	)

	BeforeEach(func() {
		h = newHarness()
		user = h.createUser("maria", "Maria@Example.com")
	})

	DescribeTable("grava o horário da tentativa em todos os desfechos",
		func(program func(*testutil.FakeFetcher), expected services.Outcome) {
			program(h.fetcher)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(expected))

			avatar := h.avatarOf(user.ID)
			Expect(avatar).NotTo(BeNil())
			Expect(avatar.LastGravatarDownloadAttempt).NotTo(BeNil())
			Expect(*avatar.LastGravatarDownloadAttempt).To(BeTemporally("==", h.now))
		},
		Entry("sucesso", func(f *testutil.FakeFetcher) {
			f.Respond(testutil.PNG(GinkgoT(), 96, 96))
		}, services.OutcomeSuccess),
		Entry("gravatar inexistente", func(f *testutil.FakeFetcher) {
			f.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusNotFound})
		}, services.OutcomeNotFound),
		Entry("falha de transporte", func(f *testutil.FakeFetcher) {
			f.Fail(errors.New("dial tcp: i/o timeout"))
		}, services.OutcomeTransportError),
		Entry("status inesperado", func(f *testutil.FakeFetcher) {
			f.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusServiceUnavailable})
		}, services.OutcomeTransportError),
		Entry("conteúdo grande demais", func(f *testutil.FakeFetcher) {
			f.Fail(domainerrors.ErrRemoteTooLarge)
		}, services.OutcomeNotFound),
	)

	It("monta a URL do gravatar com hash, token e maior tamanho", func() {
		h.fetcher.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusNotFound})

		_, err := h.refresher().Refresh(h.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())

		calls := h.fetcher.Calls()
		Expect(calls).To(HaveLen(1))
		hash := valueobjects.HashEmail("maria@example.com")
		Expect(calls[0].URL).To(MatchRegexp(
			`^https://www\.gravatar\.com/avatar/` + hash + `\.png\?d=404&reset_cache=[A-Za-z0-9_-]{7}&s=360$`))
		Expect(calls[0].Options.FollowRedirects).To(BeFalse())
		Expect(calls[0].Options.MaxBytes).To(Equal(int64(1 << 20)))
	})

	It("usa o email de sistema para o usuário de sistema", func() {
		system := &entities.User{ID: entities.SystemUserID, Username: "system"}
		Expect(h.users.Create(h.ctx, system)).To(Succeed())
		h.fetcher.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusNotFound})

		_, err := h.refresher().Refresh(h.ctx, system.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.fetcher.Calls()[0].URL).To(ContainSubstring(valueobjects.HashEmail("system@avantpro.local")))
	})

	It("retorna MissingPrecondition sem email e ainda grava a tentativa", func() {
		noEmail := h.createUser("sem-email", "")

		result, err := h.refresher().Refresh(h.ctx, noEmail.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(services.OutcomeMissingPrecondition))
		Expect(h.fetcher.Calls()).To(BeEmpty())
		Expect(h.avatarOf(noEmail.ID).LastGravatarDownloadAttempt).NotTo(BeNil())
	})

	It("falha com ErrUserNotFound para usuário desconhecido", func() {
		_, err := h.refresher().Refresh(h.ctx, "nao-existe")
		Expect(err).To(MatchError(domainerrors.ErrUserNotFound))
	})

	It("não altera nada além do horário quando o gravatar não existe", func() {
		previous := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		h.setAvatar(user.ID, previous, nil, false)
		h.setPointer(user.ID, previous)
		before := h.uploadCount()
		h.fetcher.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusNotFound})

		_, err := h.refresher().Refresh(h.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(h.uploadCount()).To(Equal(before))
		Expect(*h.avatarOf(user.ID).GravatarUploadID).To(Equal(previous.ID))
		Expect(*h.pointerOf(user.ID)).To(Equal(previous.ID))
	})

	It("trata conteúdo que não é imagem como NotFound", func() {
		h.fetcher.Respond([]byte("<html>not an image</html>"))

		result, err := h.refresher().Refresh(h.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(services.OutcomeNotFound))
		Expect(h.uploadCount()).To(BeZero())
	})

	Context("com download bem-sucedido", func() {
		BeforeEach(func() {
			h.fetcher.Respond(testutil.PNG(GinkgoT(), 96, 96))
		})

		It("não define o ponteiro quando o usuário não tem avatar", func() {
			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Succeeded()).To(BeTrue())
			Expect(result.Changed).To(BeFalse())

			avatar := h.avatarOf(user.ID)
			Expect(*avatar.GravatarUploadID).To(Equal(result.UploadID))
			Expect(h.pointerOf(user.ID)).To(BeNil())

			upload, err := h.uploads.FindByID(h.ctx, result.UploadID)
			Expect(err).NotTo(HaveOccurred())
			Expect(upload.Kind).To(Equal(entities.UploadKindGravatar))
			Expect(upload.UserID).To(Equal(user.ID))

			events := h.events.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Source).To(Equal("gravatar"))
		})

		It("com upload próprio ativo, só muda a referência do gravatar e o horário", func() {
			custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
			oldGravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 64)
			h.setAvatar(user.ID, oldGravatar, custom, false)
			h.setPointer(user.ID, custom)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeFalse())

			avatar := h.avatarOf(user.ID)
			Expect(*avatar.GravatarUploadID).To(Equal(result.UploadID))
			Expect(*avatar.CustomUploadID).To(Equal(custom.ID))
			Expect(avatar.PreferGravatar).To(BeFalse())
			Expect(*avatar.LastGravatarDownloadAttempt).To(BeTemporally("==", h.now))
			Expect(*h.pointerOf(user.ID)).To(Equal(custom.ID))
		})

		It("acompanha o gravatar quando o usuário escolheu exibi-lo", func() {
			custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
			oldGravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 64)
			h.setAvatar(user.ID, oldGravatar, custom, true)
			h.setPointer(user.ID, oldGravatar)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeTrue())
			Expect(*h.pointerOf(user.ID)).To(Equal(result.UploadID))
		})

		It("acompanha o gravatar exibido mesmo com upload próprio e sem preferência", func() {
			custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
			oldGravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 64)
			h.setAvatar(user.ID, oldGravatar, custom, false)
			h.setPointer(user.ID, oldGravatar)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeTrue())
			Expect(*h.pointerOf(user.ID)).To(Equal(result.UploadID))
			Expect(*h.avatarOf(user.ID).CustomUploadID).To(Equal(custom.ID))
		})

		It("mantém o ponteiro vazio quando só existe upload próprio", func() {
			custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
			h.setAvatar(user.ID, nil, custom, false)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeFalse())
			Expect(h.pointerOf(user.ID)).To(BeNil())
		})

		It("não move um ponteiro que aponta para fora do registro", func() {
			elsewhere := h.storeUpload(user.ID, entities.UploadKindAttachment, 64)
			h.setPointer(user.ID, elsewhere)

			result, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Changed).To(BeFalse())
			Expect(*h.pointerOf(user.ID)).To(Equal(elsewhere.ID))
		})

		It("cria um novo upload a cada atualização, mesmo com o mesmo conteúdo", func() {
			first, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			h.now = h.now.Add(time.Hour)
			second, err := h.refresher().Refresh(h.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.UploadID).NotTo(Equal(first.UploadID))
			Expect(h.uploadCount()).To(Equal(int64(2)))
			Expect(*h.avatarOf(user.ID).LastGravatarDownloadAttempt).To(BeTemporally("==", h.now))
		})

		It("serializa atualizações concorrentes do mesmo usuário", func() {
			oldGravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 64)
			h.setAvatar(user.ID, oldGravatar, nil, false)
			h.setPointer(user.ID, oldGravatar)
			refresher := h.refresher()
			results := make(chan services.FetchResult, 4)
			errs := make(chan error, 4)

			for range 4 {
				go func() {
					defer GinkgoRecover()
					result, err := refresher.Refresh(h.ctx, user.ID)
					results <- result
					errs <- err
				}()
			}

			ids := map[string]bool{}
			for range 4 {
				Expect(<-errs).NotTo(HaveOccurred())
				ids[(<-results).UploadID] = true
			}
			Expect(ids).To(HaveLen(4))
			Expect(h.uploadCount()).To(Equal(int64(5)))

			avatar := h.avatarOf(user.ID)
			Expect(ids).To(HaveKey(*avatar.GravatarUploadID))
			Expect(*h.pointerOf(user.ID)).To(Equal(*avatar.GravatarUploadID))
		})
	})
})
