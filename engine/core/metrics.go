package core

import (
	"time"

	"github.com/spaghettifunk/vkplayground/engine/containers"
)

const AVG_COUNT = 30

// Metrics keeps a rolling frame time average and a frames-per-second count
// refreshed once per accumulated second.
type Metrics struct {
	frameTimes  *containers.RingQueue[time.Duration]
	avg         time.Duration
	frames      int
	accumulated time.Duration
	fps         float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		frameTimes: containers.NewRingQueue[time.Duration](AVG_COUNT),
	}
}

func (m *Metrics) Update(frameElapsed time.Duration) {
	if m.frameTimes.IsFull() {
		_, _ = m.frameTimes.Dequeue()
	}
	_ = m.frameTimes.Enqueue(frameElapsed)

	var total time.Duration
	m.frameTimes.Each(func(d time.Duration) { total += d })
	m.avg = total / time.Duration(m.frameTimes.Len())

	// Count all frames, publish the count once a full second has gone by.
	m.frames++
	m.accumulated += frameElapsed
	if m.accumulated >= time.Second {
		m.fps = float64(m.frames) / m.accumulated.Seconds()
		m.accumulated = 0
		m.frames = 0
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() time.Duration {
	return m.avg
}
