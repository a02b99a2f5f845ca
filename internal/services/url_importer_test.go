package services_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/services"
	"github.com/rafabene/avantpro-avatars/internal/testutil"
)

const importURL = "https://images.example.com/people/joao.png"

var _ = Describe("URLImporter", func() {
	var (
		h    *harness
		user *entities.User
	)

	BeforeEach(func() {
		h = newHarness()
		user = h.createUser("joao", "joao@example.com")
	})

	It("não cria upload nem muda a referência quando a URL responde 500", func() {
		custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 48)
		h.setAvatar(user.ID, nil, custom, false)
		before := h.uploadCount()
		h.fetcher.Fail(&domainerrors.HTTPStatusError{StatusCode: http.StatusInternalServerError})

		result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(services.OutcomeNotFound))

		Expect(h.uploadCount()).To(Equal(before))
		Expect(*h.avatarOf(user.ID).CustomUploadID).To(Equal(custom.ID))
	})

	It("registra o upload próprio e o exibe por padrão", func() {
		h.fetcher.Respond(testutil.PNG(GinkgoT(), 128, 128))
		before := h.uploadCount()

		result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(services.OutcomeSuccess))
		Expect(result.Changed).To(BeTrue())

		Expect(h.uploadCount()).To(Equal(before + 1))
		Expect(*h.avatarOf(user.ID).CustomUploadID).To(Equal(result.UploadID))
		Expect(*h.pointerOf(user.ID)).To(Equal(result.UploadID))

		upload, err := h.uploads.FindByID(h.ctx, result.UploadID)
		Expect(err).NotTo(HaveOccurred())
		Expect(upload.Kind).To(Equal(entities.UploadKindCustomAvatar))
		Expect(upload.Origin).To(Equal(importURL))
		Expect(upload.OriginalFilename).To(Equal("joao.png"))

		calls := h.fetcher.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Options.FollowRedirects).To(BeTrue())
	})

	It("mantém o gravatar exibido quando a substituição está desligada", func() {
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		h.setAvatar(user.ID, gravatar, nil, false)
		h.setPointer(user.ID, gravatar)
		h.fetcher.Respond(testutil.PNG(GinkgoT(), 64, 64))

		result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{OverrideGravatar: ptr(false)})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Changed).To(BeFalse())

		avatar := h.avatarOf(user.ID)
		Expect(*avatar.CustomUploadID).To(Equal(result.UploadID))
		Expect(avatar.PreferGravatar).To(BeTrue())
		Expect(*h.pointerOf(user.ID)).To(Equal(gravatar.ID))
		Expect(entities.SelectDisplayUpload(avatar)).To(Equal(h.pointerOf(user.ID)))
	})

	It("exibe o novo upload sem substituição quando não havia ponteiro", func() {
		h.fetcher.Respond(testutil.PNG(GinkgoT(), 64, 64))

		result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{OverrideGravatar: ptr(false)})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Changed).To(BeTrue())
		Expect(*h.pointerOf(user.ID)).To(Equal(result.UploadID))
	})

	It("limpa a preferência pelo gravatar quando substitui", func() {
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		h.setAvatar(user.ID, gravatar, nil, true)
		h.setPointer(user.ID, gravatar)
		h.fetcher.Respond(testutil.PNG(GinkgoT(), 64, 64))

		result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{OverrideGravatar: ptr(true)})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.avatarOf(user.ID).PreferGravatar).To(BeFalse())
		Expect(*h.pointerOf(user.ID)).To(Equal(result.UploadID))
	})

	It("classifica SSRF e falhas de rede como erro de transporte", func() {
		for _, cause := range []error{domainerrors.ErrSSRFRejected, errors.New("connection refused")} {
			h.fetcher.Fail(cause)

			result, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outcome).To(Equal(services.OutcomeTransportError))
			Expect(result.Err).To(MatchError(cause))
		}
		Expect(h.uploadCount()).To(BeZero())
	})

	It("propaga ErrUploadsDisabled", func() {
		h = newHarness(withUploadsDisabled())
		user = h.createUser("joao", "joao@example.com")
		h.fetcher.Respond(testutil.PNG(GinkgoT(), 64, 64))

		_, err := h.importer().Import(h.ctx, importURL, user.ID, services.ImportOptions{})
		Expect(err).To(MatchError(domainerrors.ErrUploadsDisabled))
		Expect(h.avatarOf(user.ID)).To(BeNil())
	})

	It("falha com ErrUserNotFound sem buscar a URL", func() {
		_, err := h.importer().Import(h.ctx, importURL, "nao-existe", services.ImportOptions{})
		Expect(err).To(MatchError(domainerrors.ErrUserNotFound))
		Expect(h.fetcher.Calls()).To(BeEmpty())
	})
})
