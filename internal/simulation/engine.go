// Package simulation runs Monte-Carlo trials of random tickets against a
// reference draw and tallies prize tiers.
package simulation

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
	"github.com/montanaflynn/stats"
)

const (
	// MaxTrials is the hard cap on a single run
	MaxTrials = 100_000_000
	// DefaultBatchSize is the number of trials a worker runs between
	// cancellation checks
	DefaultBatchSize = 1 << 16
	// SampleLimit bounds the tickets echoed back in a result
	SampleLimit = 10
)

// Config tunes the worker pool
type Config struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

// Engine runs simulations on a fixed-size worker pool per job
type Engine struct {
	workers   int
	batchSize int
}

// NewEngine creates an engine. Zero values fall back to NumCPU workers and
// DefaultBatchSize.
func NewEngine(cfg Config) *Engine {
	e := &Engine{workers: cfg.Workers, batchSize: cfg.BatchSize}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	return e
}

// TierStat is the count and share of one tier
type TierStat struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Sample is one generated ticket with its tier
type Sample struct {
	Numbers []int  `json:"numbers"`
	Rank    string `json:"rank"`
}

// DrawInfo identifies the reference draw
type DrawInfo struct {
	DrawNo   int    `json:"draw_no"`
	DrawDate string `json:"draw_date"`
}

// Result is the merged outcome of a run. TotalPredictions is the number of
// trials actually completed, which is below RequestedPredictions only when
// Cancelled is set.
type Result struct {
	TotalPredictions     int64               `json:"total_predictions"`
	RequestedPredictions int64               `json:"requested_predictions"`
	Cancelled            bool                `json:"cancelled"`
	WinningNumbers       []int               `json:"winning_numbers"`
	BonusNumber          int                 `json:"bonus_number"`
	DrawInfo             DrawInfo            `json:"draw_info"`
	WinnerStats          map[string]TierStat `json:"winner_stats"`
	SamplePredictions    []Sample            `json:"sample_predictions"`
	Seed                 uint64              `json:"seed"`
	DurationMillis       int64               `json:"duration_ms"`
}

// Progress is a consistent view of a running job
type Progress struct {
	Completed int64   `json:"completed"`
	Requested int64   `json:"requested"`
	Percent   float64 `json:"percent"`
	Done      bool    `json:"done"`
}

// Job is a handle on a simulation running in the background
type Job struct {
	n       int64
	ref     Reference
	seed    uint64
	started time.Time

	cancel    context.CancelFunc
	completed atomic.Int64
	nextBatch atomic.Int64

	mu      sync.Mutex
	counts  [tierCount]int64
	samples []Sample

	done   chan struct{}
	result Result
}

// Validate checks a requested trial count
func Validate(n int64) error {
	if n < 1 {
		return errs.New(errs.KindValidation, "num_predictions must be at least 1")
	}
	if n > MaxTrials {
		return errs.New(errs.KindSimulationOverflow,
			"num_predictions %d exceeds the maximum of %d", n, MaxTrials)
	}
	return nil
}

// Start launches a run of n trials and returns immediately. The run stops
// early when ctx is cancelled or Cancel is called.
func (e *Engine) Start(ctx context.Context, n int64, ref Reference, seed uint64) (*Job, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}
	if ref.mask == 0 {
		return nil, errs.New(errs.KindValidation, "reference draw is not initialised")
	}

	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		n:       n,
		ref:     ref,
		seed:    seed,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	batches := (n + int64(e.batchSize) - 1) / int64(e.batchSize)
	workers := e.workers
	if int64(workers) > batches {
		workers = int(batches)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			j.work(ctx, batches, int64(e.batchSize))
		}()
	}
	go func() {
		wg.Wait()
		cancelled := ctx.Err() != nil && j.completed.Load() < j.n
		cancel()
		j.finish(cancelled)
	}()
	return j, nil
}

// Simulate runs n trials to completion or cancellation
func (e *Engine) Simulate(ctx context.Context, n int64, ref Reference, seed uint64) (Result, error) {
	j, err := e.Start(ctx, n, ref, seed)
	if err != nil {
		return Result{}, err
	}
	return j.Wait(), nil
}

func (j *Job) work(ctx context.Context, batches, batchSize int64) {
	for {
		if ctx.Err() != nil {
			return
		}
		b := j.nextBatch.Add(1) - 1
		if b >= batches {
			return
		}
		size := batchSize
		if rest := j.n - b*batchSize; rest < size {
			size = rest
		}
		j.runBatch(b, size)
	}
}

// runBatch draws size tickets from a generator seeded by (seed, batch), so
// totals do not depend on which worker picks the batch up
func (j *Job) runBatch(batch, size int64) {
	rng := rand.New(rand.NewPCG(j.seed, uint64(batch)))
	var local [tierCount]int64
	var samples []Sample
	for i := int64(0); i < size; i++ {
		ticket := drawTicket(rng)
		tier := j.ref.Classify(ticket)
		local[tier]++
		if batch == 0 && i < SampleLimit {
			samples = append(samples, Sample{Numbers: numbersOf(ticket), Rank: tier.Key()})
		}
	}

	j.mu.Lock()
	for t := range local {
		j.counts[t] += local[t]
	}
	if samples != nil {
		j.samples = samples
	}
	j.completed.Add(size)
	j.mu.Unlock()
}

// drawTicket picks six distinct numbers in [1,45] by rejection on a bitmask
func drawTicket(rng *rand.Rand) uint64 {
	var m uint64
	for picked := 0; picked < models.NumbersPerDraw; {
		bit := uint64(1) << uint(rng.IntN(models.MaxNumber)+1)
		if m&bit != 0 {
			continue
		}
		m |= bit
		picked++
	}
	return m
}

func (j *Job) finish(cancelled bool) {
	j.mu.Lock()
	completed := j.completed.Load()
	winners := make(map[string]TierStat, tierCount)
	for t := Tier(0); t < tierCount; t++ {
		winners[t.Key()] = TierStat{Count: j.counts[t], Percentage: percentage(j.counts[t], completed)}
	}
	samples := j.samples
	j.mu.Unlock()
	if samples == nil {
		samples = []Sample{}
	}

	j.result = Result{
		TotalPredictions:     completed,
		RequestedPredictions: j.n,
		Cancelled:            cancelled,
		WinningNumbers:       append([]int(nil), j.ref.Numbers...),
		BonusNumber:          j.ref.Bonus,
		DrawInfo:             DrawInfo{DrawNo: j.ref.DrawNo, DrawDate: j.ref.DrawDate},
		WinnerStats:          winners,
		SamplePredictions:    samples,
		Seed:                 j.seed,
		DurationMillis:       time.Since(j.started).Milliseconds(),
	}
	close(j.done)
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	p, _ := stats.Round(float64(count)/float64(total)*100, 2)
	return p
}

// Cancel stops issuing new batches; in-flight batches still merge
func (j *Job) Cancel() { j.cancel() }

// Done is closed once the result is available
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the run finishes and returns its result
func (j *Job) Wait() Result {
	<-j.done
	return j.result
}

// Progress reports completed trials without blocking workers for long
func (j *Job) Progress() Progress {
	completed := j.completed.Load()
	done := false
	select {
	case <-j.done:
		done = true
	default:
	}
	pct, _ := stats.Round(float64(completed)/float64(j.n)*100, 2)
	return Progress{Completed: completed, Requested: j.n, Percent: pct, Done: done}
}

// Counts returns the merged tier counts at this moment. They always sum to
// the completed count read under the same lock.
func (j *Job) Counts() (map[string]int64, int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]int64, tierCount)
	for t := Tier(0); t < tierCount; t++ {
		out[t.Key()] = j.counts[t]
	}
	return out, j.completed.Load()
}
