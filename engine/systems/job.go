package systems

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
)

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")

/** @brief A unit of work run by the JobSystem. */
type Job func() error

/**
 * @brief A fixed pool of workers used for CPU side work that does not touch
 * the GPU, such as decoding the faces of a cubemap.
 */
type JobSystem struct {
	numWorkers int
	jobQueue   chan queuedJob
	wg         sync.WaitGroup
}

type queuedJob struct {
	job  Job
	done func(error)
}

func NewJobSystem(numWorkers int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan queuedJob, numWorkers),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for q := range js.jobQueue {
				q.done(q.job())
			}
		}()
	}
}

// Run executes the jobs on the pool and waits for all of them. Every error
// is logged and the first one is returned.
func (js *JobSystem) Run(jobs ...Job) error {
	var (
		mu       sync.Mutex
		firstErr error
		pending  sync.WaitGroup
	)
	pending.Add(len(jobs))
	for _, job := range jobs {
		js.jobQueue <- queuedJob{job: job, done: func(err error) {
			defer pending.Done()
			if err == nil {
				return
			}
			core.LogError("%s", err)
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}}
	}
	pending.Wait()
	return firstErr
}

/**
 * @brief Shuts the job system down, waiting for queued jobs to finish.
 */
func (js *JobSystem) Shutdown() {
	close(js.jobQueue)
	js.wg.Wait()
}
