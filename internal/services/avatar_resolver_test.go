package services_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

var _ = Describe("AvatarResolver", func() {
	var (
		h        *harness
		user     *entities.User
		resolver *services.AvatarResolver
	)

	BeforeEach(func() {
		h = newHarness()
		user = h.createUser("ana", "ana@example.com")
		resolver = services.NewAvatarResolver(h.deps, services.ResolverConfig{
			Sizes:              valueobjects.MustParseAvatarSizes("24|48|96"),
			DefaultURLTemplate: "/images/avatar.png?s={size}",
		})
	})

	It("rejeita tamanhos não positivos", func() {
		for _, size := range []int{0, -1} {
			_, err := resolver.Resolve(h.ctx, user.ID, size)
			Expect(err).To(MatchError(domainerrors.ErrInvalidAvatarSize))
		}
	})

	It("devolve o avatar padrão para usuário sem avatar ou desconhecido", func() {
		for _, id := range []string{user.ID, "nao-existe"} {
			ref, err := resolver.Resolve(h.ctx, id, 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.IsDefault()).To(BeTrue())
			Expect(ref.URL).To(Equal("/images/avatar.png?s=48"))
		}
		Expect(h.scheduler.Jobs()).To(BeEmpty())
	})

	Context("com upload exibido", func() {
		var upload *entities.Upload

		BeforeEach(func() {
			upload = h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 200)
			h.setAvatar(user.ID, nil, upload, false)
			h.setPointer(user.ID, upload)
		})

		It("devolve a rendition exata sem agendar nada", func() {
			_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, 48, 48)
			Expect(err).NotTo(HaveOccurred())

			ref, err := resolver.Resolve(h.ctx, user.ID, 48)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Kind).To(Equal(entities.ImageKindRendition))
			Expect(ref.Width).To(Equal(48))
			Expect(ref.UploadID).To(Equal(upload.ID))
			Expect(h.scheduler.Jobs()).To(BeEmpty())
		})

		It("arredonda para o tamanho configurado seguinte", func() {
			_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, 48, 48)
			Expect(err).NotTo(HaveOccurred())

			ref, err := resolver.Resolve(h.ctx, user.ID, 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Kind).To(Equal(entities.ImageKindRendition))
			Expect(ref.Width).To(Equal(48))
		})

		It("usa a rendition maior mais próxima e agenda a que falta", func() {
			for _, size := range []int{96, 48} {
				_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, size, size)
				Expect(err).NotTo(HaveOccurred())
			}

			ref, err := resolver.Resolve(h.ctx, user.ID, 24)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Kind).To(Equal(entities.ImageKindRendition))
			Expect(ref.Width).To(Equal(48))
			Expect(h.scheduler.Jobs()).To(ConsistOf(scheduled{uploadID: upload.ID, size: 24}))
		})

		It("devolve o original e agenda a rendition quando não há nenhuma", func() {
			ref, err := resolver.Resolve(h.ctx, user.ID, 96)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Kind).To(Equal(entities.ImageKindOriginal))
			Expect(ref.URL).To(Equal(upload.URL))
			Expect(h.scheduler.Jobs()).To(ConsistOf(scheduled{uploadID: upload.ID, size: 96}))

			images, err := h.optimized.ListByUploadIDs(h.ctx, []string{upload.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(images).To(BeEmpty())
		})

		It("ignora renditions de tamanhos não configurados", func() {
			_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, 60, 60)
			Expect(err).NotTo(HaveOccurred())

			ref, err := resolver.Resolve(h.ctx, user.ID, 48)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Kind).To(Equal(entities.ImageKindOriginal))
		})
	})

	It("nunca amplia: devolve o original menor que o alvo", func() {
		small := h.storeUpload(user.ID, entities.UploadKindGravatar, 32)
		h.setAvatar(user.ID, small, nil, false)
		h.setPointer(user.ID, small)

		ref, err := resolver.Resolve(h.ctx, user.ID, 96)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Kind).To(Equal(entities.ImageKindOriginal))
		Expect(ref.Width).To(Equal(32))
		Expect(h.scheduler.Jobs()).To(BeEmpty())
	})

	It("cai para as fontes do registro quando o ponteiro está pendente", func() {
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 128)
		custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 128)
		h.setAvatar(user.ID, gravatar, custom, false)
		h.setPointer(user.ID, custom)
		Expect(h.uploads.Delete(h.ctx, custom.ID)).To(Succeed())

		ref, err := resolver.Resolve(h.ctx, user.ID, 96)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Kind).To(Equal(entities.ImageKindOriginal))
		Expect(ref.UploadID).To(Equal(gravatar.ID))
	})

	It("devolve o padrão quando todas as fontes sumiram", func() {
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 128)
		h.setAvatar(user.ID, gravatar, nil, false)
		h.setPointer(user.ID, gravatar)
		Expect(h.uploads.Delete(h.ctx, gravatar.ID)).To(Succeed())

		ref, err := resolver.Resolve(h.ctx, user.ID, 24)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.IsDefault()).To(BeTrue())
	})
})

var _ = Describe("AvatarPreferences", func() {
	It("reaponta o ponteiro de exibição conforme a preferência", func() {
		h := newHarness()
		user := h.createUser("bia", "bia@example.com")
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 48)
		h.setAvatar(user.ID, gravatar, custom, false)
		h.setPointer(user.ID, custom)

		preferences := services.NewAvatarPreferences(h.deps)

		Expect(preferences.SetPreferGravatar(h.ctx, user.ID, true)).To(Succeed())
		Expect(h.avatarOf(user.ID).PreferGravatar).To(BeTrue())
		Expect(*h.pointerOf(user.ID)).To(Equal(gravatar.ID))

		Expect(preferences.SetPreferGravatar(h.ctx, user.ID, false)).To(Succeed())
		Expect(*h.pointerOf(user.ID)).To(Equal(custom.ID))

		Expect(h.events.Events()).To(HaveLen(2))
	})

	It("falha com ErrUserNotFound", func() {
		h := newHarness()
		err := services.NewAvatarPreferences(h.deps).SetPreferGravatar(h.ctx, "nao-existe", true)
		Expect(err).To(MatchError(domainerrors.ErrUserNotFound))
	})
})
