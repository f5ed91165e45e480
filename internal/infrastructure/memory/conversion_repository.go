package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/inventario-bom/internal/domain"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/internal/domain/repository"
)

var (
	_ repository.ConversionJobRepository = (*jobRepo)(nil)
	_ repository.LegacyRepository        = (*legacyRepo)(nil)
)

type jobRepo Store

// Create rechaza un segundo job activo igual que el índice parcial de postgres.
func (r *jobRepo) Create(_ context.Context, job *entity.ConversionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return domain.ErrDuplicate
	}
	if !job.Status.Terminal() {
		for _, j := range r.jobs {
			if !j.Status.Terminal() {
				return fmt.Errorf("job %s: %w", j.ID, domain.ErrConversionInProgress)
			}
		}
	}
	s := job.Snapshot()
	r.jobs[job.ID] = &s
	return nil
}

// Update no sobrescribe un job que ya llegó a completed o failed.
func (r *jobRepo) Update(_ context.Context, job *entity.ConversionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status.Terminal() {
		return fmt.Errorf("job %s (%s): %w", job.ID, stored.Status, domain.ErrJobFinished)
	}
	s := job.Snapshot()
	r.jobs[job.ID] = &s
	return nil
}

func (r *jobRepo) GetByID(_ context.Context, id string) (*entity.ConversionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	s := j.Snapshot()
	return &s, nil
}

func (r *jobRepo) GetActive(_ context.Context) (*entity.ConversionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if !j.Status.Terminal() {
			s := j.Snapshot()
			return &s, nil
		}
	}
	return nil, nil
}

func (r *jobRepo) List(_ context.Context, limit int) ([]*entity.ConversionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.ConversionJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		s := j.Snapshot()
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type legacyRepo Store

// SeedLegacy carga registros planos (fixtures de tests y modo desarrollo).
func (s *Store) SeedLegacy(items []entity.LegacyItem, purchases, sales []entity.LegacyLine, assets []entity.LegacyAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacyItems = append(s.legacyItems, items...)
	s.legacyPurchases = append(s.legacyPurchases, purchases...)
	s.legacySales = append(s.legacySales, sales...)
	s.legacyAssets = append(s.legacyAssets, assets...)
}

func (r *legacyRepo) pending(class, id string) bool {
	return !r.converted[class+"/"+id]
}

func (r *legacyRepo) CountPending(_ context.Context, class string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	switch class {
	case entity.ClassItems:
		for _, it := range r.legacyItems {
			if r.pending(class, it.ID) {
				n++
			}
		}
	case entity.ClassPurchases:
		for _, l := range r.legacyPurchases {
			if r.pending(class, l.ID) {
				n++
			}
		}
	case entity.ClassSales:
		for _, l := range r.legacySales {
			if r.pending(class, l.ID) {
				n++
			}
		}
	case entity.ClassAssets:
		for _, a := range r.legacyAssets {
			if r.pending(class, a.ID) {
				n++
			}
		}
	default:
		return 0, domain.NewValidationError("class", "clase desconocida "+class)
	}
	return n, nil
}

func (r *legacyRepo) ListPendingItems(_ context.Context) ([]entity.LegacyItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.LegacyItem
	for _, it := range r.legacyItems {
		if r.pending(entity.ClassItems, it.ID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *legacyRepo) ListPendingPurchaseLines(_ context.Context) ([]entity.LegacyLine, error) {
	return r.pendingLines(entity.ClassPurchases), nil
}

func (r *legacyRepo) ListPendingSaleLines(_ context.Context) ([]entity.LegacyLine, error) {
	return r.pendingLines(entity.ClassSales), nil
}

func (r *legacyRepo) pendingLines(class string) []entity.LegacyLine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := r.legacyPurchases
	if class == entity.ClassSales {
		lines = r.legacySales
	}
	var out []entity.LegacyLine
	for _, l := range lines {
		if r.pending(class, l.ID) {
			out = append(out, l)
		}
	}
	return out
}

func (r *legacyRepo) ListPendingAssets(_ context.Context) ([]entity.LegacyAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.LegacyAsset
	for _, a := range r.legacyAssets {
		if r.pending(entity.ClassAssets, a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *legacyRepo) MarkConverted(_ context.Context, class, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converted[class+"/"+id] = true
	return nil
}
