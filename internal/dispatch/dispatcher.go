// Package dispatch applies the reference-bound scorer to every candidate under
// one of several dispatch policies and reports scores and wall time per policy.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"parani/internal/ani"
	"parani/internal/metrics"
	"parani/internal/pool"
)

// ErrInvalidConfig is returned by New for an unusable Config.
var ErrInvalidConfig = errors.New("dispatch: invalid config")

// Config is the input of one dispatcher.
type Config struct {
	Reference  string
	Candidates []string
	Workers    int // pool size for parallel policies (>=1)
}

// ScoreFunc scores one (reference, candidate) pair.
type ScoreFunc func(ctx context.Context, reference, candidate string) (float64, error)

// Score is one candidate's result.
type Score struct {
	Index     int // position of the candidate in Config.Candidates
	Candidate string
	Value     float64
}

// Report describes one policy run. Scores are in collection order, which is
// input order for every policy except Unordered.
type Report struct {
	RunID   string
	Policy  Policy
	Workers int
	Scores  []Score
	Elapsed time.Duration
}

// Values returns the score values in collection order.
func (r Report) Values() []float64 {
	out := make([]float64, len(r.Scores))
	for i, s := range r.Scores {
		out[i] = s.Value
	}
	return out
}

// CandidateError attributes a scoring failure to its candidate.
type CandidateError struct {
	Index     int
	Candidate string
	Err       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %d (%s): %v", e.Index, e.Candidate, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithScoreFunc replaces the FASTA file scorer.
func WithScoreFunc(fn ScoreFunc) Option { return func(d *Dispatcher) { d.score = fn } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(d *Dispatcher) { d.log = l } }

// WithMetrics records task and run metrics on m.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option { return func(d *Dispatcher) { d.tracer = t } }

// WithClock overrides time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

// Dispatcher runs dispatch policies over a fixed reference and candidate list.
type Dispatcher struct {
	cfg     Config
	score   ScoreFunc
	load    ani.LoadFunc
	log     zerolog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// New validates cfg and returns a Dispatcher.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	switch {
	case cfg.Reference == "":
		return nil, fmt.Errorf("%w: reference path is required", ErrInvalidConfig)
	case len(cfg.Candidates) == 0:
		return nil, fmt.Errorf("%w: at least one candidate is required", ErrInvalidConfig)
	case cfg.Workers < 1:
		return nil, fmt.Errorf("%w: workers must be >= 1 (got %d)", ErrInvalidConfig, cfg.Workers)
	}
	d := &Dispatcher{
		cfg:    cfg,
		load:   ani.NewLoader(),
		log:    zerolog.Nop(),
		tracer: otel.Tracer("parani/internal/dispatch"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// RunAll runs policies in order and stops at the first failing one. The
// failing run's report is included.
func (d *Dispatcher) RunAll(ctx context.Context, policies []Policy) ([]Report, error) {
	reports := make([]Report, 0, len(policies))
	for _, p := range policies {
		rep, err := d.Run(ctx, p)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Run scores every candidate under policy p. Elapsed covers pool start-up,
// dispatch, collection and teardown, measured from a fresh start time.
// On failure the report keeps the scores collected before the error.
func (d *Dispatcher) Run(ctx context.Context, p Policy) (Report, error) {
	if !p.valid() {
		return Report{}, fmt.Errorf("unknown policy %q", p)
	}
	rep := Report{RunID: uuid.NewString(), Policy: p, Workers: d.cfg.Workers}
	if !p.Parallel() {
		rep.Workers = 1
	}

	ctx, span := d.tracer.Start(ctx, "dispatch."+string(p), trace.WithAttributes(
		attribute.String("parani.policy", string(p)),
		attribute.Int("parani.workers", rep.Workers),
		attribute.Int("parani.candidates", len(d.cfg.Candidates)),
	))
	defer span.End()

	log := d.log.With().Str("run_id", rep.RunID).Str("policy", string(p)).Int("workers", rep.Workers).Logger()
	log.Info().Int("candidates", len(d.cfg.Candidates)).Msg("dispatch started")

	var err error
	start := d.now()
	if p.Parallel() {
		rep.Scores, err = d.runPool(ctx, p, log)
	} else {
		rep.Scores, err = d.runSequential(ctx, log)
	}
	rep.Elapsed = d.now().Sub(start)

	if d.metrics != nil {
		d.metrics.ObserveRun(string(p), rep.Workers, rep.Elapsed)
	}
	span.SetAttributes(attribute.Int("parani.scored", len(rep.Scores)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Dur("elapsed", rep.Elapsed).Int("scored", len(rep.Scores)).Msg("dispatch failed")
		return rep, err
	}
	log.Info().Dur("elapsed", rep.Elapsed).Msg("dispatch finished")
	return rep, nil
}

// bind fixes the reference into a single-argument task.
func (d *Dispatcher) bind() pool.Task[string, float64] {
	if d.score == nil {
		return ani.BindWith(d.load, d.cfg.Reference)
	}
	ref, score := d.cfg.Reference, d.score
	return func(ctx context.Context, candidate string) (float64, error) {
		return score(ctx, ref, candidate)
	}
}

func (d *Dispatcher) observer(p Policy) pool.Observer {
	if d.metrics == nil {
		return pool.NopObserver{}
	}
	return d.metrics.TaskObserver(string(p))
}

func (d *Dispatcher) runSequential(ctx context.Context, log zerolog.Logger) ([]Score, error) {
	task := d.bind()
	obs := d.observer(Sequential)
	scores := make([]Score, 0, len(d.cfg.Candidates))
	for i, c := range d.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return scores, err
		}
		obs.TaskStarted()
		t0 := time.Now()
		v, err := task(ctx, c)
		obs.TaskFinished(time.Since(t0), err)
		if err != nil {
			return scores, &CandidateError{Index: i, Candidate: c, Err: err}
		}
		scores = append(scores, d.scored(log, i, v, len(scores)+1))
	}
	return scores, nil
}

func (d *Dispatcher) runPool(ctx context.Context, p Policy, log zerolog.Logger) (scores []Score, err error) {
	ctx, cancel := context.WithCancel(ctx)
	pl, err := pool.New(d.cfg.Workers, d.bind(), pool.WithObserver(d.observer(p)))
	if err != nil {
		cancel()
		return nil, err
	}
	defer func() {
		// Work still queued after an early return is skipped, not run.
		cancel()
		pl.Close()
		if jerr := pl.Join(); jerr != nil && err == nil {
			err = jerr
		}
	}()

	cands := d.cfg.Candidates
	switch p {
	case Ordered, Unordered:
		var it *pool.Iterator[float64]
		if p == Ordered {
			it, err = pl.Imap(ctx, cands)
		} else {
			it, err = pl.ImapUnordered(ctx, cands)
		}
		if err != nil {
			return nil, err
		}
		scores = make([]Score, 0, it.Len())
		for r, ok := it.Next(); ok; r, ok = it.Next() {
			if r.Err != nil {
				return scores, d.attribute(&pool.TaskError{Index: r.Index, Err: r.Err})
			}
			scores = append(scores, d.scored(log, r.Index, r.Value, len(scores)+1))
		}
		return scores, nil

	default: // Bulk, BulkAsync
		var values []float64
		if p == Bulk {
			values, err = pl.Map(ctx, cands)
		} else {
			ar, serr := pl.MapAsync(ctx, cands)
			if serr != nil {
				return nil, serr
			}
			log.Debug().Int("submitted", len(cands)).Msg("batch submitted")
			values, err = ar.Get()
		}
		failed := failedIndices(err)
		scores = make([]Score, 0, len(values))
		for i, v := range values {
			if failed[i] {
				continue
			}
			scores = append(scores, d.scored(log, i, v, len(scores)+1))
		}
		return scores, d.attribute(err)
	}
}

func (d *Dispatcher) scored(log zerolog.Logger, i int, v float64, done int) Score {
	s := Score{Index: i, Candidate: d.cfg.Candidates[i], Value: v}
	log.Debug().
		Int("index", i).
		Str("candidate", s.Candidate).
		Float64("score", v).
		Str("progress", fmt.Sprintf("%d/%d", done, len(d.cfg.Candidates))).
		Msg("scored")
	return s
}

// attribute rewrites pool task errors into CandidateErrors, keeping joins.
func (d *Dispatcher) attribute(err error) error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs := j.Unwrap()
		out := make([]error, len(errs))
		for i, e := range errs {
			out[i] = d.attribute(e)
		}
		return errors.Join(out...)
	}
	var te *pool.TaskError
	if errors.As(err, &te) && te.Index >= 0 && te.Index < len(d.cfg.Candidates) {
		return &CandidateError{Index: te.Index, Candidate: d.cfg.Candidates[te.Index], Err: te.Err}
	}
	return err
}

func failedIndices(err error) map[int]bool {
	failed := map[int]bool{}
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, x := range j.Unwrap() {
				walk(x)
			}
			return
		}
		var te *pool.TaskError
		if errors.As(e, &te) {
			failed[te.Index] = true
		}
	}
	walk(err)
	return failed
}
