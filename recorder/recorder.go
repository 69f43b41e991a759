// Package recorder is a file-backed capture resource: configure, Prepare,
// Start, Stop, Release, and poll the peak input amplitude in between.
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"kandru/audio"
	"kandru/encoder"
)

type Source int

const (
	SourceMic Source = iota
)

func (s Source) String() string {
	if s == SourceMic {
		return "mic"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

type Config struct {
	Source     Source
	Container  encoder.Container
	Bitrate    int // target bits per second; lossless containers ignore it
	SampleRate uint32
	Channels   uint32
	OutputPath string
	Device     *audio.DeviceInfo
}

var (
	ErrState  = errors.New("recorder: invalid state")
	ErrConfig = errors.New("recorder: invalid config")
)

type state int

const (
	stateInitial state = iota
	statePrepared
	stateRecording
	stateStopped
	stateReleased
)

// Recorder writes one recording to Config.OutputPath. It is single-use:
// after Stop or Release a new Recorder is needed.
type Recorder struct {
	ctx audio.Context
	cfg Config

	mu      sync.Mutex
	state   state
	file    *os.File
	enc     encoder.Encoder
	capture audio.CaptureDevice
	pending []int16
	encErr  error

	peak   atomic.Int32
	frames atomic.Uint64
}

func New(ctx audio.Context, cfg Config) *Recorder {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = encoder.SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = encoder.Channels
	}
	if cfg.Container == "" {
		cfg.Container = encoder.ContainerFLAC
	}
	return &Recorder{ctx: ctx, cfg: cfg}
}

func (r *Recorder) Config() Config { return r.cfg }

// Prepare opens the output file, the encoder and the capture device.
func (r *Recorder) Prepare() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateInitial {
		return fmt.Errorf("%w: prepare after %d", ErrState, r.state)
	}
	if r.cfg.Source != SourceMic {
		return fmt.Errorf("%w: unsupported source %s", ErrConfig, r.cfg.Source)
	}
	if r.cfg.OutputPath == "" {
		return fmt.Errorf("%w: no output path", ErrConfig)
	}
	if r.ctx == nil {
		return fmt.Errorf("%w: no audio context", ErrConfig)
	}

	if err := os.MkdirAll(filepath.Dir(r.cfg.OutputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(r.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	enc, err := encoder.New(r.cfg.Container, f, int(r.cfg.SampleRate), int(r.cfg.Channels))
	if err != nil {
		f.Close()
		os.Remove(r.cfg.OutputPath)
		return err
	}

	capture, err := r.ctx.NewCapture(r.cfg.Device, audio.CaptureConfig{
		SampleRate: r.cfg.SampleRate,
		Channels:   r.cfg.Channels,
	})
	if err != nil {
		f.Close()
		os.Remove(r.cfg.OutputPath)
		return fmt.Errorf("opening capture device: %w", err)
	}

	r.file = f
	r.enc = enc
	r.capture = capture
	r.state = statePrepared
	return nil
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state != statePrepared {
		r.mu.Unlock()
		return fmt.Errorf("%w: start before prepare", ErrState)
	}
	capture := r.capture
	r.state = stateRecording
	r.mu.Unlock()

	capture.SetCallback(r.onData)
	// Capture backends may deliver data synchronously from Start, so the
	// lock must not be held here.
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		r.mu.Lock()
		r.state = statePrepared
		r.mu.Unlock()
		return fmt.Errorf("starting capture: %w", err)
	}
	return nil
}

func (r *Recorder) onData(data []byte, _ uint32) {
	samples := make([]int16, len(data)/2)
	var peak int32
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = s
		a := int32(s)
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	for {
		cur := r.peak.Load()
		if peak <= cur || r.peak.CompareAndSwap(cur, peak) {
			break
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateRecording || r.encErr != nil {
		return
	}
	r.frames.Add(uint64(len(samples)) / uint64(r.cfg.Channels))
	r.pending = append(r.pending, samples...)
	block := encoder.BlockSize * int(r.cfg.Channels)
	for len(r.pending) >= block {
		if err := r.enc.EncodeBlock(r.pending[:block]); err != nil {
			r.encErr = err
			return
		}
		r.pending = r.pending[block:]
	}
}

// MaxAmplitude returns the largest absolute sample seen since the previous
// call and resets the tracker.
func (r *Recorder) MaxAmplitude() int {
	return int(r.peak.Swap(0))
}

// Frames reports how many frames were captured so far.
func (r *Recorder) Frames() uint64 {
	return r.frames.Load()
}

// Stop ends capture and finalises the file. Calling it in any state other
// than recording returns ErrState.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state != stateRecording {
		r.mu.Unlock()
		return fmt.Errorf("%w: stop while not recording", ErrState)
	}
	capture := r.capture
	r.state = stateStopped
	r.mu.Unlock()

	capture.Stop()
	capture.ClearCallback()

	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.encErr
	if len(r.pending) > 0 && err == nil {
		err = r.enc.EncodeBlock(r.pending)
		r.pending = nil
	}
	if cerr := r.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	if err != nil {
		return fmt.Errorf("finalising recording: %w", err)
	}
	return nil
}

// EncodeTimeMs reports milliseconds spent in the encoder.
func (r *Recorder) EncodeTimeMs() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return 0
	}
	return float64(r.enc.EncodeTime().Microseconds()) / 1000
}

// Release frees the capture device and closes the file if Stop was never
// reached. It is safe to call more than once.
func (r *Recorder) Release() {
	r.mu.Lock()
	capture := r.capture
	recording := r.state == stateRecording
	r.capture = nil
	r.state = stateReleased
	f := r.file
	r.file = nil
	r.mu.Unlock()

	if capture != nil {
		if recording {
			capture.Stop()
		}
		capture.ClearCallback()
		capture.Close()
	}
	if f != nil {
		f.Close()
	}
}
