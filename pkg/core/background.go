package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hireflow/careermem-go/pkg/logging"
)

// DefaultTaskErrorBuffer is the capacity of the TaskRunner error channel.
const DefaultTaskErrorBuffer = 64

// TaskError reports a failed background task.
type TaskError struct {
	// Task is the name the task was started with.
	Task string

	// Err is the error the task returned (or the recovered panic).
	Err error
}

// Error implements error.
func (e TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Task, e.Err)
}

// Unwrap returns the task's error.
func (e TaskError) Unwrap() error {
	return e.Err
}

// TaskRunner runs fire-and-forget work off the request path.
//
// Each task gets a context detached from the caller's cancellation (values
// are kept) and bounded by the runner's timeout, so a finished HTTP request
// does not abort memory extraction it triggered. Failures are logged and
// published on Errors(), which is separate from the primary result path.
// When nobody drains Errors() and the buffer is full, the error is dropped
// after logging.
//
// Example:
//
//	runner := core.NewTaskRunner(time.Minute, logger)
//	defer runner.Close()
//
//	runner.Go(ctx, "extract_memories", func(ctx context.Context) error {
//	    _, err := client.ExtractMemoriesFromMessage(ctx, userID, text, ectx)
//	    return err
//	})
type TaskRunner struct {
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	timeout time.Duration
	logger  logging.Logger
	errs    chan TaskError
}

// NewTaskRunner creates a runner. A non-positive timeout leaves tasks
// unbounded; a nil logger discards logs.
func NewTaskRunner(timeout time.Duration, logger logging.Logger) *TaskRunner {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &TaskRunner{
		timeout: timeout,
		logger:  logger,
		errs:    make(chan TaskError, DefaultTaskErrorBuffer),
	}
}

// Go starts fn in a new goroutine. It returns false, without running fn,
// once the runner is closed.
//
// Parameters:
//   - ctx: Parent context; its values are kept, its cancellation is not
//   - name: Task name used in logs and TaskError
//   - fn: The work to run
func (r *TaskRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("background task rejected, runner closed", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		taskCtx := context.WithoutCancel(ctx)
		var cancel context.CancelFunc = func() {}
		if r.timeout > 0 {
			taskCtx, cancel = context.WithTimeout(taskCtx, r.timeout)
		}
		defer cancel()

		start := time.Now()
		err := r.run(taskCtx, fn)
		if err == nil {
			r.logger.Debug("background task finished", "task", name, "duration", time.Since(start))
			return
		}
		r.logger.Error("background task failed", "task", name, "error", err, "duration", time.Since(start))
		select {
		case r.errs <- TaskError{Task: name, Err: err}:
		default:
		}
	}()
	return true
}

func (r *TaskRunner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Errors returns the channel failed tasks are published on. It is closed by
// Close.
func (r *TaskRunner) Errors() <-chan TaskError {
	return r.errs
}

// Wait blocks until every started task has finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

// Close stops accepting tasks, waits for running ones and closes Errors().
// It is safe to call more than once.
func (r *TaskRunner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	close(r.errs)
}
