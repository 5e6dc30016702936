package github

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/gitline/gitline/internal/errors"
)

// WorkerPool bounds parallel GitHub API calls so concurrent fan-out cannot
// burn through the shared rate budget. Rate-limited tasks are retried with
// exponential backoff.
type WorkerPool struct {
	workers     int
	backoffBase time.Duration
	maxBackoff  time.Duration
}

// Task is a unit of work for the pool
type Task struct {
	ID  string
	Run func(ctx context.Context) (interface{}, error)
}

// Result is the outcome of a single task. Failures are reported here rather
// than aborting the batch; callers decide whether to degrade or fail.
type Result struct {
	ID    string
	Data  interface{}
	Error error
}

// NewWorkerPool creates a pool with a fixed concurrency limit
func NewWorkerPool(workers int, backoffBase, maxBackoff time.Duration) *WorkerPool {
	if workers < 1 {
		workers = 1
	}

	return &WorkerPool{
		workers:     workers,
		backoffBase: backoffBase,
		maxBackoff:  maxBackoff,
	}
}

// Execute runs all tasks and returns one result per task. Ordering of
// results is not guaranteed; callers re-sort by their own keys.
func (wp *WorkerPool) Execute(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return []Result{}
	}

	taskChan := make(chan Task, len(tasks))
	resultChan := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)

		go wp.worker(ctx, &wg, taskChan, resultChan)
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(tasks))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}

func (wp *WorkerPool) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	taskChan <-chan Task,
	resultChan chan<- Result,
) {
	defer wg.Done()

	for {
		select {
		case task, ok := <-taskChan:
			if !ok {
				return
			}

			result := wp.executeTask(ctx, task)

			select {
			case resultChan <- result:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// executeTask runs a single task, retrying rate-limited failures up to
// three attempts with exponential backoff.
func (wp *WorkerPool) executeTask(ctx context.Context, task Task) Result {
	var lastErr error

	backoff := wp.backoffBase

	for attempt := 0; attempt < 3; attempt++ {
		data, err := task.Run(ctx)
		if err == nil {
			return Result{ID: task.ID, Data: data}
		}

		lastErr = err

		if !apperrors.IsType(err, apperrors.ErrTypeRateLimit) || attempt == 2 {
			break
		}

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, wp.maxBackoff)
		case <-ctx.Done():
			return Result{ID: task.ID, Error: ctx.Err()}
		}
	}

	return Result{ID: task.ID, Error: lastErr}
}
