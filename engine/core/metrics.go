package core

import "sync"

const AVG_COUNT uint8 = 30

// LoadMetrics keeps a rolling average of texture load latency together
// with success/failure counters.
type LoadMetrics struct {
	mu sync.Mutex

	avgCounter uint8
	msTimes    [AVG_COUNT]float64
	msAvg      float64
	samples    uint64

	loaded    uint64
	failed    uint64
	discarded uint64
}

func NewLoadMetrics() *LoadMetrics {
	return &LoadMetrics{}
}

// RecordLoad adds the latency, in seconds, of a load that reached a terminal state.
func (m *LoadMetrics) RecordLoad(elapsedSeconds float64, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if failed {
		m.failed++
	} else {
		m.loaded++
	}

	ms := elapsedSeconds * 1000.0
	m.msTimes[m.avgCounter] = ms
	m.samples++

	// Until the window fills up, average over what we have.
	n := uint64(AVG_COUNT)
	if m.samples < n {
		n = m.samples
	}
	sum := 0.0
	for i := uint64(0); i < n; i++ {
		sum += m.msTimes[i]
	}
	m.msAvg = sum / float64(n)

	m.avgCounter++
	m.avgCounter %= AVG_COUNT
}

// RecordDiscard counts a completion that arrived for a cancelled load.
func (m *LoadMetrics) RecordDiscard() {
	m.mu.Lock()
	m.discarded++
	m.mu.Unlock()
}

// AverageLoadMS returns the rolling average load latency in milliseconds.
func (m *LoadMetrics) AverageLoadMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msAvg
}

func (m *LoadMetrics) Counts() (loaded, failed, discarded uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded, m.failed, m.discarded
}
