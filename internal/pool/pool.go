// internal/pool/pool.go
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is the unit of work applied to each input.
type Task[In, Out any] func(ctx context.Context, in In) (Out, error)

// Result is one task outcome, tagged with the input index.
type Result[Out any] struct {
	Index int
	Value Out
	Err   error
}

// Observer receives task lifecycle events from worker goroutines.
// Implementations must be safe for concurrent use.
type Observer interface {
	TaskStarted()
	TaskFinished(d time.Duration, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) TaskStarted()                      {}
func (NopObserver) TaskFinished(time.Duration, error) {}

// Option configures a Pool.
type Option func(*options)

type options struct {
	obs      Observer
	queueLen int
}

// WithObserver attaches an Observer to every task run by the pool.
func WithObserver(o Observer) Option {
	return func(c *options) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithQueueLen sets the job queue capacity (default 2*workers).
func WithQueueLen(n int) Option {
	return func(c *options) { c.queueLen = n }
}

type job[In, Out any] struct {
	ctx   context.Context
	index int
	in    In
	out   chan<- Result[Out]
}

// Pool is a fixed-size worker pool. It is safe for concurrent use.
type Pool[In, Out any] struct {
	task    Task[In, Out]
	workers int
	obs     Observer
	jobs    chan job[In, Out]
	g       errgroup.Group

	mu      sync.Mutex
	closed  bool
	feeders sync.WaitGroup
}

// New starts workers goroutines that run task. The worker set is fixed for
// the lifetime of the pool.
func New[In, Out any](workers int, task Task[In, Out], opts ...Option) (*Pool[In, Out], error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidWorkers, workers)
	}
	if task == nil {
		return nil, fmt.Errorf("pool: nil task")
	}
	o := options{obs: NopObserver{}, queueLen: workers * 2}
	for _, fn := range opts {
		fn(&o)
	}
	if o.queueLen < 0 {
		o.queueLen = 0
	}

	p := &Pool[In, Out]{
		task:    task,
		workers: workers,
		obs:     o.obs,
		jobs:    make(chan job[In, Out], o.queueLen),
	}
	for w := 0; w < workers; w++ {
		p.g.Go(func() error {
			for j := range p.jobs {
				p.run(j)
			}
			return nil
		})
	}
	return p, nil
}

// Workers reports the fixed worker count.
func (p *Pool[In, Out]) Workers() int { return p.workers }

func (p *Pool[In, Out]) run(j job[In, Out]) {
	if err := j.ctx.Err(); err != nil {
		j.out <- Result[Out]{Index: j.index, Err: err}
		return
	}
	p.obs.TaskStarted()
	start := time.Now()
	v, err := p.call(j.ctx, j.in)
	p.obs.TaskFinished(time.Since(start), err)
	j.out <- Result[Out]{Index: j.index, Value: v, Err: err}
}

func (p *Pool[In, Out]) call(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return p.task(ctx, in)
}

// submit feeds inputs to the workers and returns immediately. The result
// channel holds the whole batch so workers never wait on the collector.
func (p *Pool[In, Out]) submit(ctx context.Context, inputs []In) (*batch[Out], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.feeders.Add(1)
	p.mu.Unlock()

	out := make(chan Result[Out], len(inputs))
	go func() {
		defer p.feeders.Done()
		for i, in := range inputs {
			select {
			case p.jobs <- job[In, Out]{ctx: ctx, index: i, in: in, out: out}:
			case <-ctx.Done():
				for k := i; k < len(inputs); k++ {
					out <- Result[Out]{Index: k, Err: ctx.Err()}
				}
				return
			}
		}
	}()
	return newBatch(out, len(inputs)), nil
}

// Imap submits inputs and returns an iterator yielding results in input order.
func (p *Pool[In, Out]) Imap(ctx context.Context, inputs []In) (*Iterator[Out], error) {
	b, err := p.submit(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return &Iterator[Out]{next: b.nextOrdered, total: b.total}, nil
}

// ImapUnordered submits inputs and returns an iterator yielding results in
// completion order. Use Result.Index to map a result back to its input.
func (p *Pool[In, Out]) ImapUnordered(ctx context.Context, inputs []In) (*Iterator[Out], error) {
	b, err := p.submit(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return &Iterator[Out]{next: b.nextCompleted, total: b.total}, nil
}

// MapAsync submits inputs and returns at once; AsyncResult.Get blocks for the values.
func (p *Pool[In, Out]) MapAsync(ctx context.Context, inputs []In) (*AsyncResult[Out], error) {
	b, err := p.submit(ctx, inputs)
	if err != nil {
		return nil, err
	}
	ar := &AsyncResult[Out]{done: make(chan struct{})}
	go func() {
		defer close(ar.done)
		ar.values, ar.err = b.collectAll()
	}()
	return ar, nil
}

// Map submits inputs and blocks until every task has finished. Values are in
// input order. Failed tasks leave a zero value at their index and are
// reported together as one joined error of *TaskError.
func (p *Pool[In, Out]) Map(ctx context.Context, inputs []In) ([]Out, error) {
	ar, err := p.MapAsync(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return ar.Get()
}

// Close stops the pool from accepting new work. Work already submitted still
// runs to completion. Close is idempotent.
func (p *Pool[In, Out]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.feeders.Wait()
	close(p.jobs)
}

// Join blocks until all workers have exited. It must follow Close.
func (p *Pool[In, Out]) Join() error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		return ErrRunning
	}
	return p.g.Wait()
}
