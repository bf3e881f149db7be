package systems

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/skytex/engine/core"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// JobSystem runs jobs on a fixed pool of worker goroutines. High priority
// jobs are picked before normal ones.
type JobSystem struct {
	numWorkers int
	highQueue  chan metadata.JobTask
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	mu      sync.RWMutex
	running atomic.Bool
	pending atomic.Int64
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		highQueue:  make(chan metadata.JobTask, channelSize),
		jobQueue:   make(chan metadata.JobTask, channelSize),
	}
	js.running.Store(true)

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for {
				// Drain high priority work first.
				select {
				case job, ok := <-js.highQueue:
					if ok {
						js.run(job)
						continue
					}
				default:
				}
				select {
				case job, ok := <-js.highQueue:
					if !ok {
						js.drain(js.jobQueue)
						return
					}
					js.run(job)
				case job, ok := <-js.jobQueue:
					if !ok {
						js.drain(js.highQueue)
						return
					}
					js.run(job)
				}
			}
		}()
	}
}

func (js *JobSystem) drain(queue chan metadata.JobTask) {
	for job := range queue {
		js.run(job)
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	defer js.pending.Add(-1)

	if err := job.OnStart(); err != nil {
		core.LogError("job '%s' failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
	}

	// Call the completion callback if set
	if job.OnCompletionCallback != nil {
		job.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run; Submit fails
 * afterwards.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if !js.running.Swap(false) {
		js.mu.Unlock()
		return nil
	}
	close(js.highQueue)
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job '%s' has no OnStart", jt.Name)
	}
	js.mu.RLock()
	defer js.mu.RUnlock()
	if !js.running.Load() {
		return core.ErrShutdown
	}
	js.pending.Add(1)
	if jt.Priority == metadata.JOB_PRIORITY_HIGH {
		js.highQueue <- jt
	} else {
		js.jobQueue <- jt
	}
	return nil
}

// Pending returns the number of submitted jobs that have not finished yet.
func (js *JobSystem) Pending() int {
	return int(js.pending.Load())
}
