package encoder

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// noCloser hides Close from the flac encoder so the caller keeps ownership
// of the file while the StreamInfo block can still be rewritten via Seek.
type noCloser struct {
	io.WriteSeeker
}

type FlacEncoder struct {
	enc         *flac.Encoder
	sampleRate  uint32
	channels    int
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewFlac(w io.WriteSeeker, sampleRate, channels int) (*FlacEncoder, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("flac: unsupported channel count %d", channels)
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(noCloser{w}, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	return &FlacEncoder{enc: enc, sampleRate: uint32(sampleRate), channels: channels}, nil
}

// EncodeBlock writes one frame. block holds interleaved samples and must not
// exceed BlockSize frames.
func (e *FlacEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	n := len(block) / e.channels
	if n == 0 {
		return nil
	}
	if n > BlockSize {
		return fmt.Errorf("flac: block of %d frames exceeds %d", n, BlockSize)
	}

	subframes := make([]*frame.Subframe, e.channels)
	for ch := range subframes {
		samples := make([]int32, n)
		for i := 0; i < n; i++ {
			samples[i] = int32(block[i*e.channels+ch])
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  samples,
			NSamples: n,
		}
	}

	channels := frame.ChannelsMono
	if e.channels == 2 {
		channels = frame.ChannelsLR
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(n),
			SampleRate:    e.sampleRate,
			Channels:      channels,
			BitsPerSample: BitsPerSample,
		},
		Subframes: subframes,
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.totalFrames += uint64(n)
	e.encodeTime += time.Since(start)
	return nil
}

func (e *FlacEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Close()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *FlacEncoder) AddEncodeTime(d time.Duration) {
	e.mu.Lock()
	e.encodeTime += d
	e.mu.Unlock()
}

func (e *FlacEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
