package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkers is returned by New for a worker count below one.
	ErrInvalidWorkers = errors.New("pool: worker count must be >= 1")
	// ErrClosed is returned when work is submitted after Close.
	ErrClosed = errors.New("pool: closed")
	// ErrRunning is returned by Join when Close has not been called.
	ErrRunning = errors.New("pool: still running, call Close before Join")
	// ErrWorkerPanic wraps a panic recovered from a task.
	ErrWorkerPanic = errors.New("pool: worker panic")
)

// TaskError ties a task failure to the input index that produced it.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %d: %v", e.Index, e.Err) }
func (e *TaskError) Unwrap() error { return e.Err }
