package monitor

import (
	"sync"
	"time"
)

type OnTick func()

// Monitor calls onTick every interval until stopped. The view uses it to
// redraw relative timestamps ("last frame 4 seconds ago") while no frames
// arrive.
type Monitor struct {
	onTick   OnTick
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func New(interval time.Duration, onTick OnTick) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		onTick:   onTick,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				if m.onTick != nil {
					m.onTick()
				}
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight onTick to return. It is
// safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}
