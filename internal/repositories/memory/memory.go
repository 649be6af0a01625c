// Package memory provides in-process repository implementations used when no
// MongoDB URI is configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
)

// DrawRepository keeps draws in a map keyed by draw number
type DrawRepository struct {
	mu     sync.RWMutex
	draws  map[int]models.Draw
	writes int
}

// NewDrawRepository creates an empty in-memory DrawRepository
func NewDrawRepository() *DrawRepository {
	return &DrawRepository{draws: make(map[int]models.Draw)}
}

var _ repositories.DrawRepository = (*DrawRepository)(nil)

func (r *DrawRepository) UpsertMany(ctx context.Context, draws []models.Draw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, d := range draws {
		d = d.Normalized()
		d.UpdatedAt = now
		r.draws[d.DrawNo] = d
	}
	r.writes += len(draws)
	return nil
}

func (r *DrawRepository) FindAll(ctx context.Context) ([]models.Draw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Draw, 0, len(r.draws))
	for _, d := range r.draws {
		out = append(out, d.Normalized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawNo < out[j].DrawNo })
	return out, nil
}

func (r *DrawRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.draws)), nil
}

// Writes returns how many draw records have been written so far
func (r *DrawRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// SystemConfigRepository keeps configuration entries in a map
type SystemConfigRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.SystemConfig
}

// NewSystemConfigRepository creates an empty in-memory SystemConfigRepository
func NewSystemConfigRepository() *SystemConfigRepository {
	return &SystemConfigRepository{entries: make(map[string]*models.SystemConfig)}
}

var _ repositories.SystemConfigRepository = (*SystemConfigRepository)(nil)

func (r *SystemConfigRepository) FindByKey(ctx context.Context, key string) (*models.SystemConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *SystemConfigRepository) UpsertByKey(ctx context.Context, key string, value interface{}, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	c, ok := r.entries[key]
	if !ok {
		c = &models.SystemConfig{Key: key, CreatedAt: now}
		r.entries[key] = c
	}
	c.Value = value
	c.Description = description
	c.UpdatedAt = now
	return nil
}

// TrainingRunRepository keeps training runs in insertion order
type TrainingRunRepository struct {
	mu   sync.RWMutex
	runs []*models.TrainingRun
}

// NewTrainingRunRepository creates an empty in-memory TrainingRunRepository
func NewTrainingRunRepository() *TrainingRunRepository {
	return &TrainingRunRepository{}
}

var _ repositories.TrainingRunRepository = (*TrainingRunRepository)(nil)

func (r *TrainingRunRepository) Create(ctx context.Context, run *models.TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs = append(r.runs, &cp)
	return nil
}

func (r *TrainingRunRepository) FindRecent(ctx context.Context, limit int) ([]*models.TrainingRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.TrainingRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.runs[i]
		out = append(out, &cp)
	}
	return out, nil
}
