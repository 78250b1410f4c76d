package evolve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/instinct/internal/frontmatter"
	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/logging"
	"github.com/lazypower/instinct/internal/observe"
	"github.com/lazypower/instinct/internal/store"
)

// Reason explains why a pass had nothing to do.
type Reason string

const (
	ReasonNoLog          Reason = "no observations file found"
	ReasonNoDir          Reason = "no instincts directory found"
	ReasonNoInstincts    Reason = "no instincts to evolve"
	ReasonNoObservations Reason = "no valid observations found"
)

// Change is one evolved record.
type Change struct {
	Filename string  `json:"filename"`
	Name     string  `json:"name"`
	Old      float64 `json:"old_confidence"`
	New      float64 `json:"new_confidence"`
	Relevant int     `json:"relevant_count"`
}

// Failure is a record that could not be read or written. It does not stop the pass.
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Report summarizes one pass.
type Report struct {
	RunID        string    `json:"run_id"`
	DryRun       bool      `json:"dry_run"`
	Reason       Reason    `json:"reason,omitempty"`
	Observations int       `json:"observation_count"`
	Instincts    int       `json:"instinct_count"`
	Changes      []Change  `json:"changes"`
	Failures     []Failure `json:"failures"`
	StartedAt    time.Time `json:"started_at"`
}

// NothingToDo reports whether the pass stopped before looking at records.
func (r *Report) NothingToDo() bool { return r.Reason != "" }

// RunOptions tune a single pass.
type RunOptions struct {
	DryRun bool
}

// Engine runs evolution passes over an instincts directory. A struct literal
// works; New fills in the worker count and clock.
type Engine struct {
	Dir     instincts.Dir
	Log     observe.Log
	History *store.DB // optional
	Metrics *Metrics  // optional
	Logger  *zap.Logger
	Workers int
	Now     func() time.Time

	// runMu serializes passes so a record's read-modify-write never
	// overlaps with another pass touching the same file.
	runMu    sync.Mutex
	initOnce sync.Once
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a new Engine.
func New(dir instincts.Dir, log observe.Log, logger *zap.Logger) *Engine {
	return &Engine{
		Dir:     dir,
		Log:     log,
		Logger:  logging.OrNop(logger),
		Workers: 4,
		Now:     time.Now,
	}
}

// stopped returns the channel closed by Stop. It is created on first use so
// a struct-literal Engine works too.
func (e *Engine) stopped() <-chan struct{} {
	e.initOnce.Do(func() { e.stopCh = make(chan struct{}) })
	return e.stopCh
}

// SetHistory configures where passes are recorded.
func (e *Engine) SetHistory(db *store.DB) {
	e.History = db
}

// Run performs one evolution pass. Missing inputs yield a Report with a
// Reason and a nil error. Per-record failures are collected in the Report;
// only cancellation of ctx returns an error.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	report, err := e.run(ctx, opts)
	e.Metrics.observe(report, err, time.Since(start))
	return report, err
}

func (e *Engine) run(ctx context.Context, opts RunOptions) (*Report, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		Changes:   []Change{},
		Failures:  []Failure{},
		StartedAt: now,
	}
	log := logging.OrNop(e.Logger).With(zap.String("run_id", report.RunID))

	e.startHistory(log, report)

	files, obs, err := e.prepare(report)
	if err != nil {
		e.finishHistory(log, report, err)
		return nil, err
	}
	if report.NothingToDo() {
		log.Info("evolve: nothing to do", zap.String("reason", string(report.Reason)))
		e.finishHistory(log, report, nil)
		return report, nil
	}

	log.Info("evolve: analyzing",
		zap.Int("observations", len(obs)),
		zap.Int("instincts", len(files)),
		zap.Bool("dry_run", opts.DryRun))

	results := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.Workers))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evolveFile(f, obs, now, opts.DryRun)
			return nil
		})
	}
	// Records finished before a cancellation are already on disk, so their
	// outcomes are reported either way.
	waitErr := g.Wait()

	for _, r := range results {
		switch {
		case r.filename == "":
			// never started
		case r.err != nil:
			log.Warn("evolve: record failed", zap.String("file", r.filename), zap.Error(r.err))
			report.Failures = append(report.Failures, Failure{Filename: r.filename, Error: r.err.Error()})
		case r.change != nil:
			log.Debug("evolve: record evolved",
				zap.String("name", r.change.Name),
				zap.Float64("old", r.change.Old),
				zap.Float64("new", r.change.New),
				zap.Int("relevant", r.change.Relevant))
			report.Changes = append(report.Changes, *r.change)
		}
	}

	if waitErr != nil {
		waitErr = fmt.Errorf("evolve pass: %w", waitErr)
		e.finishHistory(log, report, waitErr)
		return report, waitErr
	}

	e.finishHistory(log, report, nil)
	log.Info("evolve: done",
		zap.Int("evolved", len(report.Changes)),
		zap.Int("failed", len(report.Failures)))
	return report, nil
}

// prepare resolves the inputs of a pass, setting report.Reason when any is missing.
func (e *Engine) prepare(report *Report) ([]instincts.File, []observe.Observation, error) {
	if !e.Log.Exists() {
		report.Reason = ReasonNoLog
		return nil, nil, nil
	}
	if !e.Dir.Exists() {
		report.Reason = ReasonNoDir
		return nil, nil, nil
	}

	files, err := e.Dir.List()
	if err != nil {
		return nil, nil, err
	}
	report.Instincts = len(files)
	if len(files) == 0 {
		report.Reason = ReasonNoInstincts
		return nil, nil, nil
	}

	obs, err := e.Log.Load()
	if err != nil {
		return nil, nil, err
	}
	report.Observations = len(obs)
	if len(obs) == 0 {
		report.Reason = ReasonNoObservations
		return nil, nil, nil
	}
	return files, obs, nil
}

type outcome struct {
	filename string
	change   *Change
	err      error
}

// evolveFile is one record's read-modify-write.
func (e *Engine) evolveFile(f instincts.File, obs []observe.Observation, now time.Time, dryRun bool) outcome {
	out := outcome{filename: f.Name}

	text, err := e.Dir.Read(f)
	if err != nil {
		out.err = err
		return out
	}

	res := Evolve(frontmatter.Decode(text), f.Stem(), obs, now)
	if !res.Evolved {
		return out
	}

	if !dryRun {
		if err := e.Dir.Write(f, res.Text()); err != nil {
			out.err = err
			return out
		}
	}

	out.change = &Change{
		Filename: f.Name,
		Name:     res.Name,
		Old:      res.OldConfidence,
		New:      res.NewConfidence,
		Relevant: res.Relevant,
	}
	return out
}

func (e *Engine) startHistory(log *zap.Logger, report *Report) {
	if e.History == nil {
		return
	}
	if _, err := e.History.StartRun(report.RunID, report.DryRun); err != nil {
		log.Warn("evolve: history unavailable", zap.Error(err))
	}
}

func (e *Engine) finishHistory(log *zap.Logger, report *Report, passErr error) {
	if e.History == nil {
		return
	}

	evs := make([]store.Evolution, 0, len(report.Changes))
	for _, c := range report.Changes {
		evs = append(evs, store.Evolution{
			RunID:         report.RunID,
			Filename:      c.Filename,
			Name:          c.Name,
			OldConfidence: c.Old,
			NewConfidence: c.New,
			RelevantCount: c.Relevant,
		})
	}
	if err := e.History.AddEvolutions(evs); err != nil {
		log.Warn("evolve: record history", zap.Error(err))
	}

	err := e.History.FinishRun(report.RunID, store.RunTotals{
		ObservationCount: report.Observations,
		InstinctCount:    report.Instincts,
		EvolvedCount:     len(report.Changes),
		FailedCount:      len(report.Failures),
		Reason:           string(report.Reason),
		Err:              passErr,
	})
	if err != nil {
		log.Warn("evolve: finish history", zap.Error(err))
	}
}

// StartTimer runs a pass every interval until Stop is called.
func (e *Engine) StartTimer(interval time.Duration) {
	if interval <= 0 {
		return
	}

	stop := e.stopped()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := e.Run(context.Background(), RunOptions{}); err != nil {
					logging.OrNop(e.Logger).Error("evolve: scheduled pass", zap.Error(err))
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopped()
	e.stopOnce.Do(func() { close(e.stopCh) })
}
