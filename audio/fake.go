package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const fakeFrameSize = 1024

// FakeContext replays fixed PCM instead of talking to an audio server. It is
// used by tests and by the -fake flag of the record command.
type FakeContext struct {
	pcm      []byte
	realtime bool

	// Sources is returned by Devices.
	Sources []DeviceInfo
	// CaptureErr, when set, makes NewCapture fail.
	CaptureErr error
	// StartErr, when set, makes every capture fail to start.
	StartErr error
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data, realtime: realtime, Sources: fakeSources()}, nil
}

// NewToneContext synthesises a mono sine tone of the given length and peak.
func NewToneContext(freq float64, peak int16, length time.Duration, sampleRate uint32, realtime bool) *FakeContext {
	n := int(float64(sampleRate) * length.Seconds())
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		s := int16(math.Sin(2*math.Pi*freq*t) * float64(peak))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return &FakeContext{pcm: pcm, realtime: realtime, Sources: fakeSources()}
}

func fakeSources() []DeviceInfo {
	return []DeviceInfo{{ID: "fake-0", Name: "fake microphone"}}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.Sources, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	if config.SampleRate == 0 {
		return nil, errors.New("fake capture: zero sample rate")
	}
	return &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		startErr:  f.StartErr,
		config:    config,
		audioDone: make(chan struct{}),
	}, nil
}

type FakeCapture struct {
	pcm       []byte
	realtime  bool
	startErr  error
	config    CaptureConfig
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	closed   atomic.Bool
	doneOnce sync.Once
}

func (f *FakeCapture) markDone() {
	f.doneOnce.Do(func() { close(f.audioDone) })
}

// AudioDone is closed once the whole PCM has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

// Closed reports whether Close was called.
func (f *FakeCapture) Closed() bool { return f.closed.Load() }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) bytesPerFrame() int {
	ch := int(f.config.Channels)
	if ch == 0 {
		ch = 1
	}
	return ch * 2
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/f.bytesPerFrame()))
	return end
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * f.bytesPerFrame()
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.config.SampleRate)

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		f.markDone()
	}

	go func(stop, done chan struct{}) {
		defer close(done)
		pos := 0
		if !f.realtime {
			pos = len(f.pcm)
		}
		silence := make([]byte, chunkBytes)
		audioFinished := !f.realtime

		for {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}

			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
				continue
			}
			if !audioFinished {
				audioFinished = true
				f.markDone()
			}
			cb(silence, fakeFrameSize)
		}
	}(f.stopCh, f.feedDone)

	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.closed.Store(true)
}
