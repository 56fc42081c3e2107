package pool

import "errors"

// batch is one submission's result stream. A batch is drained by exactly one
// collector.
type batch[Out any] struct {
	results  <-chan Result[Out]
	total    int
	received int
	next     int
	pending  map[int]Result[Out]
}

func newBatch[Out any](results <-chan Result[Out], total int) *batch[Out] {
	return &batch[Out]{results: results, total: total, pending: make(map[int]Result[Out])}
}

// nextCompleted yields results in completion order.
func (b *batch[Out]) nextCompleted() (Result[Out], bool) {
	if b.received == b.total {
		return Result[Out]{}, false
	}
	r := <-b.results
	b.received++
	return r, true
}

// nextOrdered yields result i only after results 0..i-1 have been yielded.
func (b *batch[Out]) nextOrdered() (Result[Out], bool) {
	if b.next == b.total {
		return Result[Out]{}, false
	}
	for {
		if r, ok := b.pending[b.next]; ok {
			delete(b.pending, b.next)
			b.next++
			return r, true
		}
		r := <-b.results
		b.received++
		b.pending[r.Index] = r
	}
}

func (b *batch[Out]) collectAll() ([]Out, error) {
	values := make([]Out, b.total)
	var errs []error
	for r, ok := b.nextOrdered(); ok; r, ok = b.nextOrdered() {
		if r.Err != nil {
			errs = append(errs, &TaskError{Index: r.Index, Err: r.Err})
			continue
		}
		values[r.Index] = r.Value
	}
	return values, errors.Join(errs...)
}

// Iterator yields the results of one Imap or ImapUnordered call.
// It is not safe for concurrent use.
type Iterator[Out any] struct {
	next  func() (Result[Out], bool)
	total int
}

// Next blocks for the next result; ok is false once all results were yielded.
func (it *Iterator[Out]) Next() (r Result[Out], ok bool) { return it.next() }

// Len is the number of results the iterator yields in total.
func (it *Iterator[Out]) Len() int { return it.total }

// AsyncResult is the handle returned by MapAsync.
type AsyncResult[Out any] struct {
	done   chan struct{}
	values []Out
	err    error
}

// Ready reports whether Get would return without blocking.
func (a *AsyncResult[Out]) Ready() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Wait blocks until all tasks of the batch have finished.
func (a *AsyncResult[Out]) Wait() { <-a.done }

// Get blocks until all tasks have finished and returns their values in input
// order, with the same error semantics as Pool.Map.
func (a *AsyncResult[Out]) Get() ([]Out, error) {
	<-a.done
	return a.values, a.err
}
