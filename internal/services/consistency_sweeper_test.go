package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	"github.com/rafabene/avantpro-avatars/internal/services"
)

var _ = Describe("ConsistencySweeper", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	renditionSizes := func(uploadID string) []int {
		GinkgoHelper()
		images, err := h.optimized.ListByUploadIDs(h.ctx, []string{uploadID})
		Expect(err).NotTo(HaveOccurred())
		sizes := make([]int, 0, len(images))
		for _, img := range images {
			sizes = append(sizes, img.Width)
		}
		return sizes
	}

	It("anula a referência a um upload destruído e mantém o registro", func() {
		user := h.createUser("carla", "carla@example.com")
		gravatar := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		custom := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 48)
		h.setAvatar(user.ID, gravatar, custom, false)
		h.setPointer(user.ID, custom)
		Expect(h.uploads.Delete(h.ctx, custom.ID)).To(Succeed())

		report, err := h.sweeper("48").EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.ClearedReferences).To(Equal(1))
		Expect(report.ClearedDisplayPointers).To(Equal(1))

		avatar := h.avatarOf(user.ID)
		Expect(avatar).NotTo(BeNil())
		Expect(avatar.CustomUploadID).To(BeNil())
		Expect(*avatar.GravatarUploadID).To(Equal(gravatar.ID))
		Expect(h.pointerOf(user.ID)).To(BeNil())
	})

	It("remove o registro de um usuário deletado", func() {
		user := h.createUser("davi", "davi@example.com")
		h.setAvatar(user.ID, nil, nil, false)
		keeper := h.createUser("eva", "eva@example.com")
		h.setAvatar(keeper.ID, nil, nil, false)
		Expect(h.users.Delete(h.ctx, user.ID)).To(Succeed())

		report, err := h.sweeper("48").EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.DeletedRecords).To(Equal(1))
		Expect(h.avatarOf(user.ID)).To(BeNil())
		Expect(h.avatarOf(keeper.ID)).NotTo(BeNil())
	})

	It("poda renditions fora dos tamanhos configurados, exceto de uploads referenciados", func() {
		user := h.createUser("fabio", "fabio@example.com")
		avatarUpload := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
		sharedUpload := h.storeUpload(user.ID, entities.UploadKindGravatar, 64)
		h.setAvatar(user.ID, sharedUpload, avatarUpload, false)
		Expect(h.uploads.CreateReference(h.ctx, &entities.UploadReference{
			UploadID:   sharedUpload.ID,
			TargetType: "post",
			TargetID:   "post-1",
		})).To(Succeed())

		for _, upload := range []*entities.Upload{avatarUpload, sharedUpload} {
			for _, size := range []int{10, 15, 20} {
				_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, size, size)
				Expect(err).NotTo(HaveOccurred())
			}
		}

		report, err := h.sweeper("10|20|30").EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.PrunedRenditions).To(Equal(1))
		Expect(report.PruneFailures).To(BeZero())

		Expect(renditionSizes(avatarUpload.ID)).To(ConsistOf(10, 20))
		Expect(renditionSizes(sharedUpload.ID)).To(ConsistOf(10, 15, 20))
	})

	It("respeita o limite de renditions removidas por execução", func() {
		user := h.createUser("gil", "gil@example.com")
		upload := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 64)
		h.setAvatar(user.ID, nil, upload, false)
		for _, size := range []int{11, 12, 13} {
			_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, size, size)
			Expect(err).NotTo(HaveOccurred())
		}

		sweeper := services.NewConsistencySweeper(h.deps, services.SweeperConfig{
			Sizes:                 sizesOf("48"),
			PageSize:              10,
			MaxRenditionsToRemove: 2,
			ReclaimGracePeriod:    48 * time.Hour,
		})
		report, err := sweeper.EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.PrunedRenditions).To(Equal(2))
		Expect(report.PruneLimitReached).To(BeTrue())
		Expect(renditionSizes(upload.ID)).To(HaveLen(1))

		// a execução interrompida pelo limite deixa o restante para a seguinte
		report, err = sweeper.EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.PrunedRenditions).To(Equal(1))
		Expect(report.PruneLimitReached).To(BeFalse())
		Expect(renditionSizes(upload.ID)).To(BeEmpty())

		report, err = sweeper.EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report).To(Equal(services.SweepReport{}))
	})

	It("recupera uploads de avatar antigos sem referência", func() {
		user := h.createUser("helena", "helena@example.com")
		current := h.storeUpload(user.ID, entities.UploadKindGravatar, 48)
		abandoned := h.storeUpload(user.ID, entities.UploadKindGravatar, 40)
		displayed := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 36)
		attachment := h.storeUpload(user.ID, entities.UploadKindAttachment, 30)
		h.setAvatar(user.ID, current, nil, false)
		h.setPointer(user.ID, displayed)

		report, err := h.sweeper("48").EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.ReclaimedUploads).To(BeZero())

		h.now = h.now.Add(72 * time.Hour)
		report, err = h.sweeper("48").EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.ReclaimedUploads).To(Equal(1))

		for _, kept := range []*entities.Upload{current, displayed, attachment} {
			found, err := h.uploads.FindByID(h.ctx, kept.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).NotTo(BeNil())
		}
		gone, err := h.uploads.FindByID(h.ctx, abandoned.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(gone).To(BeNil())
	})

	It("não apaga nada numa segunda execução", func() {
		for i, name := range []string{"igor", "julia", "kaio"} {
			user := h.createUser(name, name+"@example.com")
			upload := h.storeUpload(user.ID, entities.UploadKindCustomAvatar, 32+i)
			h.setAvatar(user.ID, nil, upload, false)
			_, err := h.deriver.DeriveOrFetch(h.ctx, upload.ID, 15, 15)
			Expect(err).NotTo(HaveOccurred())
			if i == 1 {
				Expect(h.uploads.Delete(h.ctx, upload.ID)).To(Succeed())
			}
			if i == 2 {
				Expect(h.users.Delete(h.ctx, user.ID)).To(Succeed())
			}
		}
		h.now = h.now.Add(72 * time.Hour)

		sweeper := h.sweeper("10|20")
		first, err := sweeper.EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Removed()).To(BeNumerically(">", 0))

		second, err := sweeper.EnsureConsistency(h.ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Removed()).To(BeZero())
		Expect(second).To(Equal(services.SweepReport{}))
	})

	It("para entre páginas quando o contexto é cancelado", func() {
		user := h.createUser("leo", "leo@example.com")
		h.setAvatar(user.ID, nil, nil, false)

		ctx, cancel := context.WithCancel(h.ctx)
		cancel()

		_, err := h.sweeper("48").EnsureConsistency(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})
