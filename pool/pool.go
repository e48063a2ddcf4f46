package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoWorkers is returned when a pool is requested with less than one worker
var ErrNoWorkers = errors.New("pool needs at least one worker")

// Chunk is a contiguous share [Offset, Offset+Limit) of an index range
type Chunk struct {
	Index  int
	Offset int
	Limit  int
}

/*
Job is the work performed by a worker over a chunk. It should send one
increment on the progress channel per item processed, and return the
partial result for the chunk. Returning an error aborts the whole run.
Jobs should stop early when the context is cancelled.
*/
type Job[T any] func(ctx context.Context, c Chunk, progress chan<- int) (T, error)

// Result is the partial result of a Job tagged with the chunk it covered
type Result[T any] struct {
	Chunk Chunk
	Value T
}

/*
WorkerError is returned by Run when a worker fails to complete its
chunk, either because its job returned an error or because it panicked.
*/
type WorkerError struct {
	Chunk Chunk
	Err   error
}

func (we *WorkerError) Error() string {
	return fmt.Sprintf("worker %d on [%d, %d): %v", we.Chunk.Index, we.Chunk.Offset, we.Chunk.Offset+we.Chunk.Limit, we.Err)
}

func (we *WorkerError) Unwrap() error {
	return we.Err
}

/*
Pool holds the number of workers to run jobs with and the Reporter
progress is sent to.
*/
type Pool struct {
	workers  int
	reporter Reporter
}

/*
New takes a number of workers and a Reporter and returns a Pool with
them, or ErrNoWorkers if workers is lower than 1. A nil reporter
discards progress.
*/
func New(workers int, reporter Reporter) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("creating pool with %d workers: %w", workers, ErrNoWorkers)
	}
	if reporter == nil {
		reporter = Discard()
	}
	return &Pool{workers, reporter}, nil
}

// Workers returns the maximum number of workers of the pool
func (p *Pool) Workers() int {
	return p.workers
}

/*
Split takes a total and a number of workers and returns the contiguous
chunks covering [0, total) exactly once. There are min(workers, total)
chunks of total/workers items, and the last one absorbs the remainder.
No chunks are returned for a total lower than 1.
*/
func Split(total, workers int) []Chunk {
	if total < 1 || workers < 1 {
		return nil
	}
	if workers > total {
		workers = total
	}
	size := total / workers
	chunks := make([]Chunk, workers)
	for i := range chunks {
		chunks[i] = Chunk{Index: i, Offset: i * size, Limit: size}
	}
	last := &chunks[workers-1]
	last.Limit = total - last.Offset
	return chunks
}

/*
Run takes a context, a pool, a title for progress reporting, the total
number of items and a job, splits [0, total) among the workers of the
pool and runs the job on every chunk concurrently.

It blocks until every worker has finished and returns their results
sorted by chunk offset. If any worker fails, the context passed to the
rest is cancelled and the first failure is returned as a *WorkerError,
with no partial results.
*/
func Run[T any](ctx context.Context, p *Pool, title string, total int, job Job[T]) ([]Result[T], error) {
	chunks := Split(total, p.workers)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make(chan Result[T], len(chunks))
	failures := make(chan error, len(chunks))
	progress := make(chan int, len(chunks)*16)
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		p.reporter.Report(title, total, progress)
		for range progress {
		}
	}()
	wg := &sync.WaitGroup{}
	for _, c := range chunks {
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			v, err := runJob(ctx, c, job, progress)
			if err != nil {
				failures <- &WorkerError{Chunk: c, Err: err}
				cancel()
				return
			}
			results <- Result[T]{Chunk: c, Value: v}
		}(c)
	}
	wg.Wait()
	close(progress)
	<-reported
	close(results)
	close(failures)
	if err, ok := <-failures; ok {
		return nil, err
	}
	collected := make([]Result[T], 0, len(chunks))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Chunk.Offset < collected[j].Chunk.Offset
	})
	return collected, nil
}

func runJob[T any](ctx context.Context, c Chunk, job Job[T], progress chan<- int) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job(ctx, c, progress)
}
