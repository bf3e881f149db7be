package systems

import (
	"sync"
	"time"

	"github.com/spaghettifunk/skytex/engine/containers"
	"github.com/spaghettifunk/skytex/engine/renderer/metadata"
)

// completion is the result of one load task handed to the graphics thread.
// Exactly one of pixels and err is set.
type completion struct {
	task    *loadTask
	pixels  *metadata.PixelBuffer
	err     error
	started time.Time
}

// completionQueue is the only mutable structure shared between workers and
// the graphics thread.
type completionQueue struct {
	mu    sync.Mutex
	queue *containers.RingQueue[completion]
}

func newCompletionQueue(size int) *completionQueue {
	return &completionQueue{queue: containers.NewRingQueue[completion](size, true)}
}

func (cq *completionQueue) push(c completion) {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	// Growable queues never report full.
	_ = cq.queue.Enqueue(c)
}

// drain moves every queued completion into out and returns it.
func (cq *completionQueue) drain(out []completion) []completion {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	for !cq.queue.IsEmpty() {
		c, err := cq.queue.Dequeue()
		if err != nil {
			break
		}
		out = append(out, c)
	}
	return out
}

func (cq *completionQueue) len() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return cq.queue.Len()
}
