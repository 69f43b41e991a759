// Package beep plays short cue tones when a memo starts, is saved, or
// fails to start.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

func Enabled() bool { return !disabled.Load() }

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Saved: two rising ticks
	savedFreq   = 900
	savedVolume = 0.5
	savedDecay  = 40

	// Error: low pitch double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startSamples []int16
	savedSamples []int16
	errorSamples []int16
	soundOnce    sync.Once
)

func initSamples() {
	startSamples = tick(startFreq, 0.2, startVolume, startDecay)
	savedSamples = append(tick(savedFreq, 0.08, savedVolume, savedDecay), tick(startFreq, 0.12, savedVolume, savedDecay)...)
	errorSamples = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// tick renders a decaying mono sine.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

func play(samples []int16) {
	if disabled.Load() || len(samples) == 0 {
		return
	}
	go playSamples(samples)
}

func Init() { soundOnce.Do(initSamples) }

func PlayStart() {
	Init()
	play(startSamples)
}

func PlaySaved() {
	Init()
	play(savedSamples)
}

func PlayError() {
	Init()
	play(errorSamples)
}
