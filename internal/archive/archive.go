package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/lottoml/lotto-engine/internal/repositories"
	"golang.org/x/exp/slog"
)

// Archive is the deduplicated, ordered store of historical draws.
// Writes are serialized; readers work on immutable snapshots so a sync never
// produces a torn read.
type Archive struct {
	repo    repositories.DrawRepository
	current atomic.Pointer[Snapshot]
	writeMu sync.Mutex
}

// New creates an empty archive backed by repo
func New(repo repositories.DrawRepository) *Archive {
	a := &Archive{repo: repo}
	a.current.Store(newSnapshot(nil))
	return a
}

// Load replaces the in-memory view with the repository contents
func (a *Archive) Load(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	draws, err := a.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load draws: %w", err)
	}
	valid := make([]models.Draw, 0, len(draws))
	for _, d := range draws {
		d = d.Normalized()
		if err := d.Validate(); err != nil {
			slog.Warn("Skipping invalid stored draw", "drawNo", d.DrawNo, "error", err)
			continue
		}
		valid = append(valid, d)
	}
	a.current.Store(newSnapshot(merge(nil, valid)))
	slog.Info("Draw archive loaded", "draws", len(valid))
	return nil
}

// Snapshot returns the current immutable view
func (a *Archive) Snapshot() *Snapshot {
	return a.current.Load()
}

// AppendOrUpdate validates and stores a draw. It reports whether the stored
// state changed; re-submitting identical data is a no-op.
func (a *Archive) AppendOrUpdate(ctx context.Context, draw models.Draw) (bool, error) {
	draw = draw.Normalized()
	if err := draw.Validate(); err != nil {
		return false, err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	n, err := a.commit(ctx, []models.Draw{draw})
	return n > 0, err
}

// AppendMany stores a batch of draws in one write. Every draw is validated
// first and nothing is written if any is invalid. A draw number repeated in
// the batch keeps its last occurrence. It returns how many draws changed.
func (a *Archive) AppendMany(ctx context.Context, draws []models.Draw) (int, error) {
	byNo := make(map[int]int, len(draws))
	batch := make([]models.Draw, 0, len(draws))
	for _, d := range draws {
		d = d.Normalized()
		if err := d.Validate(); err != nil {
			return 0, err
		}
		if i, ok := byNo[d.DrawNo]; ok {
			batch[i] = d
			continue
		}
		byNo[d.DrawNo] = len(batch)
		batch = append(batch, d)
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.commit(ctx, batch)
}

// Stored returns how many draws the repository holds. It exceeds the
// snapshot length when stored draws were skipped by Load.
func (a *Archive) Stored(ctx context.Context) (int64, error) {
	n, err := a.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stored draws: %w", err)
	}
	return n, nil
}

// Get returns the draw with the given number
func (a *Archive) Get(drawNo int) (models.Draw, error) { return a.Snapshot().Get(drawNo) }

// Latest returns the highest-numbered draw
func (a *Archive) Latest() (models.Draw, error) { return a.Snapshot().Latest() }

// List returns a page of draws
func (a *Archive) List(q ListQuery) (Page, error) { return a.Snapshot().List(q) }

// commit persists the draws that differ from the current snapshot and
// publishes a new snapshot. Caller holds writeMu.
func (a *Archive) commit(ctx context.Context, draws []models.Draw) (int, error) {
	snap := a.current.Load()
	changed := make([]models.Draw, 0, len(draws))
	for _, d := range draws {
		if old, err := snap.Get(d.DrawNo); err == nil && old.SameContent(d) {
			continue
		}
		changed = append(changed, d)
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := a.repo.UpsertMany(ctx, changed); err != nil {
		return 0, fmt.Errorf("failed to persist draws: %w", err)
	}
	a.current.Store(newSnapshot(merge(snap.draws, changed)))
	return len(changed), nil
}

// Feed is the external source of official draw results
type Feed interface {
	// LatestDrawNo returns the newest draw number the publisher has released
	LatestDrawNo(ctx context.Context) (int, error)
	// FetchDraw returns one draw; ErrNotPublished if the draw does not exist yet
	FetchDraw(ctx context.Context, drawNo int) (models.Draw, error)
}

// ErrNotPublished is returned by a Feed for draws that have not happened yet
var ErrNotPublished = errors.New("draw not published")

// SyncMode selects which draw numbers a sync fetches
type SyncMode string

const (
	SyncIncremental SyncMode = "incremental"
	SyncFull        SyncMode = "full"
)

// SyncResult reports the outcome of a sync
type SyncResult struct {
	Mode        SyncMode `json:"-"`
	SyncedCount int      `json:"synced_count"`
	LatestDraw  int      `json:"latest_draw"`
}

// syncBatch is how many fetched draws are committed at once
const syncBatch = 100

// Sync pulls draws from feed. Incremental mode fetches draw numbers above the
// current latest; full mode refetches 1..latest external draw. Only new or
// changed draws are written and counted, so repeating a sync with no new data
// yields zero. On a fetch failure the draws fetched so far are kept.
func (a *Archive) Sync(ctx context.Context, feed Feed, mode SyncMode) (SyncResult, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	res := SyncResult{Mode: mode}
	external, err := feed.LatestDrawNo(ctx)
	if err != nil {
		return res, errs.Wrap(errs.KindInternal, err, "failed to query latest published draw")
	}

	start := 1
	if mode == SyncIncremental {
		if latest, err := a.current.Load().Latest(); err == nil {
			start = latest.DrawNo + 1
		}
	}

	pending := make([]models.Draw, 0, syncBatch)
	flush := func() error {
		n, err := a.commit(ctx, pending)
		res.SyncedCount += n
		pending = pending[:0]
		return err
	}

	var fetchErr error
	for no := start; no <= external; no++ {
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}
		d, err := feed.FetchDraw(ctx, no)
		if errors.Is(err, ErrNotPublished) {
			break
		}
		if err != nil {
			fetchErr = fmt.Errorf("failed to fetch draw %d: %w", no, err)
			break
		}
		d = d.Normalized()
		if err := d.Validate(); err != nil {
			fetchErr = err
			break
		}
		pending = append(pending, d)
		if len(pending) == syncBatch {
			if err := flush(); err != nil {
				return a.finish(res), err
			}
			slog.Info("Sync progress", "mode", mode, "drawNo", no, "synced", res.SyncedCount)
		}
	}
	if err := flush(); err != nil {
		return a.finish(res), err
	}
	return a.finish(res), fetchErr
}

func (a *Archive) finish(res SyncResult) SyncResult {
	if latest, err := a.current.Load().Latest(); err == nil {
		res.LatestDraw = latest.DrawNo
	}
	return res
}
