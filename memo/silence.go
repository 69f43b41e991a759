package memo

import "time"

const (
	silenceWarnAfter = 8 * time.Second
	inputMinRatio    = 0.10
	inputClearRatio  = 0.25 // higher threshold to clear the warning (hysteresis)

	// InputFloor is the peak amplitude below which a tick counts as silent.
	InputFloor = 300
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no input for the warn window
	SilenceWarnClear              // input resumed after a warning
)

type silenceMonitor struct {
	warnAt int
	floor  int

	ticks  int
	window []bool
	warned bool
}

func newSilenceMonitor(interval time.Duration, floor int) *silenceMonitor {
	warnAt := int(silenceWarnAfter / interval)
	return &silenceMonitor{
		warnAt: warnAt,
		floor:  floor,
		window: make([]bool, warnAt),
	}
}

func (m *silenceMonitor) ratio() float64 {
	n := min(m.ticks, m.warnAt)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[i] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(amplitude int) SilenceEvent {
	m.window[m.ticks%m.warnAt] = amplitude >= m.floor
	m.ticks++

	r := m.ratio()
	if m.ticks >= m.warnAt && r < inputMinRatio && !m.warned {
		m.warned = true
		return SilenceWarn
	}
	if m.warned && r >= inputClearRatio {
		m.warned = false
		return SilenceWarnClear
	}
	return SilenceNone
}

func (m *silenceMonitor) Warned() bool { return m.warned }
