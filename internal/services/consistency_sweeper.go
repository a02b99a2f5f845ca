package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rafabene/avantpro-avatars/internal/domain/entities"
	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/repositories"
	"github.com/rafabene/avantpro-avatars/internal/domain/valueobjects"
)

const maxLoggedFailures = 10

// SweeperConfig configura o ConsistencySweeper
type SweeperConfig struct {
	Sizes                 valueobjects.AvatarSizes
	PageSize              int
	MaxRenditionsToRemove int
	// ReclaimGracePeriod protege uploads recentes que ainda podem ganhar referência
	ReclaimGracePeriod time.Duration
}

// SweepReport contabiliza o que uma execução do sweeper reparou ou removeu
type SweepReport struct {
	PrunedRenditions       int `json:"pruned_renditions"`
	PruneFailures          int `json:"prune_failures"`
	ClearedReferences      int `json:"cleared_references"`
	ClearedDisplayPointers int `json:"cleared_display_pointers"`
	DeletedRecords         int `json:"deleted_records"`
	ReclaimedUploads       int `json:"reclaimed_uploads"`
	ReclaimFailures        int `json:"reclaim_failures"`
	// PruneLimitReached indica que restaram renditions para a próxima execução
	PruneLimitReached bool `json:"prune_limit_reached"`
}

// Removed soma tudo que a execução apagou ou anulou
func (r SweepReport) Removed() int {
	return r.PrunedRenditions + r.ClearedReferences + r.ClearedDisplayPointers + r.DeletedRecords + r.ReclaimedUploads
}

// ConsistencySweeper repara o estado dos avatares: poda renditions fora dos
// tamanhos configurados, anula referências pendentes, remove registros de
// usuários inexistentes e recupera uploads de avatar abandonados.
// Cada passo pagina por keyset; não há transação entre páginas.
type ConsistencySweeper struct {
	deps    Deps
	cfg     SweeperConfig
	running atomic.Bool
}

// NewConsistencySweeper cria um novo ConsistencySweeper
func NewConsistencySweeper(deps Deps, cfg SweeperConfig) *ConsistencySweeper {
	switch {
	case cfg.PageSize <= 0:
		cfg.PageSize = 500
	case cfg.PageSize > 5000:
		cfg.PageSize = 5000
	}
	return &ConsistencySweeper{deps: deps.withDefaults(), cfg: cfg}
}

// EnsureConsistency executa os passos em sequência. Execuções concorrentes no
// mesmo processo são recusadas com ErrMaintenanceRunning.
func (s *ConsistencySweeper) EnsureConsistency(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if !s.running.CompareAndSwap(false, true) {
		return report, domainerrors.ErrMaintenanceRunning
	}
	defer s.running.Store(false)

	started := s.deps.Clock.Now()
	s.deps.Logger.Info("avatar consistency sweep started")

	if err := s.pruneRenditions(ctx, &report); err != nil {
		return report, err
	}
	if err := s.healReferences(ctx, &report); err != nil {
		return report, err
	}
	if err := s.reclaimUploads(ctx, &report); err != nil {
		return report, err
	}

	s.observe(report)
	s.deps.Logger.Info("avatar consistency sweep finished",
		"pruned_renditions", report.PrunedRenditions,
		"prune_failures", report.PruneFailures,
		"cleared_references", report.ClearedReferences,
		"cleared_display_pointers", report.ClearedDisplayPointers,
		"deleted_records", report.DeletedRecords,
		"reclaimed_uploads", report.ReclaimedUploads,
		"prune_limit_reached", report.PruneLimitReached,
		"duration", s.deps.Clock.Now().Sub(started),
	)
	return report, nil
}

// eachAvatarPage chama fn para cada página de registros, em ordem de id
func (s *ConsistencySweeper) eachAvatarPage(ctx context.Context, fn func([]*entities.UserAvatar) (bool, error)) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.deps.Avatars.List(ctx, repositories.UserAvatarFilters{AfterID: cursor, Limit: s.cfg.PageSize})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		more, err := fn(page)
		if err != nil || !more {
			return err
		}
		if len(page) < s.cfg.PageSize {
			return nil
		}
		cursor = page[len(page)-1].ID
	}
}

// pruneRenditions remove renditions de uploads de avatar cujo tamanho não é
// mais configurado, exceto de uploads com referências externas
func (s *ConsistencySweeper) pruneRenditions(ctx context.Context, report *SweepReport) error {
	budget := s.cfg.MaxRenditionsToRemove

	return s.eachAvatarPage(ctx, func(page []*entities.UserAvatar) (bool, error) {
		uploadIDs := collectUploadIDs(page)
		if len(uploadIDs) == 0 {
			return true, nil
		}

		referenced, err := s.deps.Uploads.ReferencedIDs(ctx, uploadIDs)
		if err != nil {
			return false, err
		}
		candidates := subtract(uploadIDs, referenced)

		images, err := s.deps.Optimized.ListByUploadIDs(ctx, candidates)
		if err != nil {
			return false, err
		}

		for _, img := range images {
			if s.cfg.Sizes.ContainsSquare(img.Width, img.Height) {
				continue
			}
			if budget > 0 && report.PrunedRenditions >= budget {
				s.deps.Logger.Info("rendition pruning limit reached", "limit", budget)
				report.PruneLimitReached = true
				return false, nil
			}

			if err := s.deps.Renditions.DeleteRendition(ctx, img.UploadID, img.Width, img.Height); err != nil {
				report.PruneFailures++
				if report.PruneFailures <= maxLoggedFailures {
					s.deps.Logger.Warn("failed to prune rendition",
						"upload_id", img.UploadID, "width", img.Width, "height", img.Height, "error", err)
				}
				continue
			}
			report.PrunedRenditions++
		}
		return true, nil
	})
}

// healReferences anula referências para uploads inexistentes e remove
// registros cujo usuário não existe mais
func (s *ConsistencySweeper) healReferences(ctx context.Context, report *SweepReport) error {
	return s.eachAvatarPage(ctx, func(page []*entities.UserAvatar) (bool, error) {
		userIDs := make([]string, 0, len(page))
		for _, a := range page {
			userIDs = append(userIDs, a.UserID)
		}

		liveUsers, err := s.deps.Users.ExistingIDs(ctx, userIDs)
		if err != nil {
			return false, err
		}
		live := toSet(liveUsers)

		var orphanRecords []string
		kept := make([]*entities.UserAvatar, 0, len(page))
		for _, a := range page {
			if _, ok := live[a.UserID]; ok {
				kept = append(kept, a)
			} else {
				orphanRecords = append(orphanRecords, a.ID)
			}
		}
		if len(orphanRecords) > 0 {
			deleted, err := s.deps.Avatars.DeleteByIDs(ctx, orphanRecords)
			if err != nil {
				return false, err
			}
			report.DeletedRecords += int(deleted)
		}

		uploadIDs := collectUploadIDs(kept)
		existing, err := s.deps.Uploads.ExistingIDs(ctx, uploadIDs)
		if err != nil {
			return false, err
		}
		for _, id := range subtract(uploadIDs, existing) {
			cleared, err := s.deps.Avatars.ClearUpload(ctx, id)
			if err != nil {
				return false, err
			}
			report.ClearedReferences += int(cleared)
		}

		users, err := s.deps.Users.FindByIDs(ctx, liveUsers)
		if err != nil {
			return false, err
		}
		pointers := make([]string, 0, len(users))
		for _, u := range users {
			if u.UploadedAvatarID != nil {
				pointers = append(pointers, *u.UploadedAvatarID)
			}
		}
		pointers = dedupe(pointers)
		livePointers, err := s.deps.Uploads.ExistingIDs(ctx, pointers)
		if err != nil {
			return false, err
		}
		for _, id := range subtract(pointers, livePointers) {
			cleared, err := s.deps.Users.ClearUploadedAvatar(ctx, id)
			if err != nil {
				return false, err
			}
			report.ClearedDisplayPointers += int(cleared)
		}
		return true, nil
	})
}

// reclaimUploads apaga uploads de avatar antigos que nada mais referencia
func (s *ConsistencySweeper) reclaimUploads(ctx context.Context, report *SweepReport) error {
	cutoff := s.deps.Clock.Now().Add(-s.cfg.ReclaimGracePeriod)
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.deps.Uploads.ListAvatarUploads(ctx, cursor, cutoff, s.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		cursor = page[len(page)-1].ID

		ids := make([]string, 0, len(page))
		for _, u := range page {
			ids = append(ids, u.ID)
		}

		inUse, err := s.inUse(ctx, ids)
		if err != nil {
			return err
		}

		for _, id := range ids {
			if _, ok := inUse[id]; ok {
				continue
			}
			if err := s.deps.Store.Delete(ctx, id); err != nil {
				report.ReclaimFailures++
				if report.ReclaimFailures <= maxLoggedFailures {
					s.deps.Logger.Warn("failed to reclaim upload", "upload_id", id, "error", err)
				}
				continue
			}
			report.ReclaimedUploads++
		}

		if len(page) < s.cfg.PageSize {
			return nil
		}
	}
}

func (s *ConsistencySweeper) inUse(ctx context.Context, ids []string) (map[string]struct{}, error) {
	byRecord, err := s.deps.Avatars.ReferencedUploadIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byPointer, err := s.deps.Users.DisplayedUploadIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byReference, err := s.deps.Uploads.ReferencedIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	used := toSet(byRecord)
	for _, id := range append(byPointer, byReference...) {
		used[id] = struct{}{}
	}
	return used, nil
}

func (s *ConsistencySweeper) observe(report SweepReport) {
	s.deps.Metrics.ObserveSweep("pruned_renditions", report.PrunedRenditions)
	s.deps.Metrics.ObserveSweep("prune_failures", report.PruneFailures)
	s.deps.Metrics.ObserveSweep("cleared_references", report.ClearedReferences)
	s.deps.Metrics.ObserveSweep("cleared_display_pointers", report.ClearedDisplayPointers)
	s.deps.Metrics.ObserveSweep("deleted_records", report.DeletedRecords)
	s.deps.Metrics.ObserveSweep("reclaimed_uploads", report.ReclaimedUploads)
	s.deps.Metrics.ObserveSweep("reclaim_failures", report.ReclaimFailures)
}

func collectUploadIDs(avatars []*entities.UserAvatar) []string {
	ids := make([]string, 0, len(avatars)*2)
	for _, a := range avatars {
		ids = append(ids, a.UploadIDs()...)
	}
	return dedupe(ids)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func subtract(ids, remove []string) []string {
	drop := toSet(remove)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
