package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/metrics"
	"github.com/lottoml/lotto-engine/internal/simulation"
	"golang.org/x/exp/slog"
)

// Reference draw sources
const (
	ReferenceConfigured = "configured"
	ReferenceArchive    = "archive"
	ReferenceBuiltin    = "builtin"
)

// Job states
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobCancelled = "cancelled"
)

const simulationDescription = "Compares randomly generated tickets against the reference draw and reports how often each prize tier is hit."

// ReferenceDraw is the draw simulated tickets are graded against
type ReferenceDraw struct {
	DrawNo         int    `json:"draw_no"`
	DrawDate       string `json:"draw_date"`
	WinningNumbers []int  `json:"winning_numbers"`
	BonusNumber    int    `json:"bonus_number"`
}

// SimulationInfo describes the simulation endpoint
type SimulationInfo struct {
	Available   bool          `json:"available"`
	LatestDraw  ReferenceDraw `json:"latest_draw"`
	Description string        `json:"description"`
	Source      string        `json:"source"`
	MaxTrials   int64         `json:"max_predictions"`
}

// SimulationStatus reports whether simulations can run
type SimulationStatus struct {
	Available   bool `json:"available"`
	Ready       bool `json:"ready"`
	RunningJobs int  `json:"running_jobs"`
}

// SimulationJob is the externally visible state of an asynchronous run
type SimulationJob struct {
	ID        string              `json:"id"`
	State     string              `json:"state"`
	Progress  simulation.Progress `json:"progress"`
	Result    *simulation.Result  `json:"result,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type jobEntry struct {
	id        string
	job       *simulation.Job
	createdAt time.Time
}

func (e *jobEntry) view() *SimulationJob {
	v := &SimulationJob{ID: e.id, State: JobRunning, Progress: e.job.Progress(), CreatedAt: e.createdAt}
	if v.Progress.Done {
		res := e.job.Wait()
		v.Result = &res
		v.State = JobCompleted
		if res.Cancelled {
			v.State = JobCancelled
		}
	}
	return v
}

var _ SimulationService = (*SimulationServiceImpl)(nil)

// SimulationServiceImpl resolves the reference draw and runs simulations
// synchronously or as tracked background jobs
type SimulationServiceImpl struct {
	archive         *archive.Archive
	engine          *simulation.Engine
	referenceDrawNo int
	maxJobs         int

	baseCtx context.Context
	stop    context.CancelFunc

	mu    sync.Mutex
	jobs  map[string]*jobEntry
	order []string
}

// NewSimulationService creates a new SimulationServiceImpl. referenceDrawNo
// pins the graded draw; 0 uses the latest archived draw.
func NewSimulationService(a *archive.Archive, engine *simulation.Engine, referenceDrawNo, maxJobs int) *SimulationServiceImpl {
	if maxJobs <= 0 {
		maxJobs = 16
	}
	ctx, stop := context.WithCancel(context.Background())
	return &SimulationServiceImpl{
		archive:         a,
		engine:          engine,
		referenceDrawNo: referenceDrawNo,
		maxJobs:         maxJobs,
		baseCtx:         ctx,
		stop:            stop,
		jobs:            make(map[string]*jobEntry),
	}
}

// reference picks the configured draw, else the latest archived draw, else
// the built-in one
func (s *SimulationServiceImpl) reference() (simulation.Reference, string) {
	snap := s.archive.Snapshot()
	if s.referenceDrawNo > 0 {
		d, err := snap.Get(s.referenceDrawNo)
		if err == nil {
			if ref, err := simulation.NewReference(d); err == nil {
				return ref, ReferenceConfigured
			}
		}
		slog.Warn("Configured simulation reference draw unavailable", "drawNo", s.referenceDrawNo, "error", err)
	}
	if d, err := snap.Latest(); err == nil {
		if ref, err := simulation.NewReference(d); err == nil {
			return ref, ReferenceArchive
		}
	}
	return simulation.DefaultReference(), ReferenceBuiltin
}

// Info returns the reference draw used for grading
func (s *SimulationServiceImpl) Info(ctx context.Context) (*SimulationInfo, error) {
	ref, source := s.reference()
	return &SimulationInfo{
		Available: true,
		LatestDraw: ReferenceDraw{
			DrawNo:         ref.DrawNo,
			DrawDate:       ref.DrawDate,
			WinningNumbers: ref.Numbers,
			BonusNumber:    ref.Bonus,
		},
		Description: simulationDescription,
		Source:      source,
		MaxTrials:   simulation.MaxTrials,
	}, nil
}

// Status reports simulation availability
func (s *SimulationServiceImpl) Status(ctx context.Context) SimulationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	running := 0
	for _, e := range s.jobs {
		if !e.job.Progress().Done {
			running++
		}
	}
	return SimulationStatus{Available: true, Ready: true, RunningJobs: running}
}

func resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}

func record(id string, job *simulation.Job) {
	res := job.Wait()
	metrics.RecordSimulation(res.TotalPredictions, time.Duration(res.DurationMillis)*time.Millisecond, res.Cancelled)
	slog.Info("Simulation finished", "jobID", id, "requested", res.RequestedPredictions,
		"completed", res.TotalPredictions, "cancelled", res.Cancelled, "durationMs", res.DurationMillis)
}

// Run simulates n tickets and waits for the result. Cancelling ctx stops the
// run and returns the partial counts.
func (s *SimulationServiceImpl) Run(ctx context.Context, n int64, seed *uint64) (*simulation.Result, error) {
	ref, _ := s.reference()
	job, err := s.engine.Start(ctx, n, ref, resolveSeed(seed))
	if err != nil {
		return nil, err
	}
	record("", job)
	res := job.Wait()
	return &res, nil
}

// StartJob launches a background simulation tied to the service lifetime
func (s *SimulationServiceImpl) StartJob(ctx context.Context, n int64, seed *uint64) (*SimulationJob, error) {
	if err := simulation.Validate(n); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pruneLocked() {
		return nil, errs.New(errs.KindRateLimited, "Too many simulation jobs running (limit %d)", s.maxJobs)
	}

	ref, _ := s.reference()
	job, err := s.engine.Start(s.baseCtx, n, ref, resolveSeed(seed))
	if err != nil {
		return nil, err
	}
	e := &jobEntry{id: uuid.NewString(), job: job, createdAt: time.Now().UTC()}
	s.jobs[e.id] = e
	s.order = append(s.order, e.id)
	go record(e.id, job)

	slog.Info("Simulation job started", "jobID", e.id, "requested", n, "referenceDraw", ref.DrawNo)
	return e.view(), nil
}

// pruneLocked drops the oldest finished jobs until there is room for one
// more. It reports false when every retained job is still running.
func (s *SimulationServiceImpl) pruneLocked() bool {
	for len(s.order) >= s.maxJobs {
		idx := -1
		for i, id := range s.order {
			if s.jobs[id].job.Progress().Done {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false
		}
		delete(s.jobs, s.order[idx])
		s.order = append(s.order[:idx], s.order[idx+1:]...)
	}
	return true
}

func (s *SimulationServiceImpl) lookup(id string) (*jobEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "Simulation job %s not found", id)
	}
	return e, nil
}

// GetJob returns the progress or result of a job
func (s *SimulationServiceImpl) GetJob(ctx context.Context, id string) (*SimulationJob, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.view(), nil
}

// CancelJob stops a job and waits for its partial result
func (s *SimulationServiceImpl) CancelJob(ctx context.Context, id string) (*SimulationJob, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.job.Cancel()
	select {
	case <-e.job.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	slog.Info("Simulation job cancelled", "jobID", id)
	return e.view(), nil
}

// ListJobs returns the retained jobs, oldest first
func (s *SimulationServiceImpl) ListJobs(ctx context.Context) []*SimulationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SimulationJob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].view())
	}
	return out
}

// Shutdown cancels every running job
func (s *SimulationServiceImpl) Shutdown() {
	s.stop()
}
