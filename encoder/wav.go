package encoder

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

type WavEncoder struct {
	enc         *wav.Encoder
	format      *audio.Format
	channels    int
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewWav(w io.WriteSeeker, sampleRate, channels int) *WavEncoder {
	return &WavEncoder{
		enc:      wav.NewEncoder(w, sampleRate, BitsPerSample, channels, wavFormatPCM),
		format:   &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		channels: channels,
	}
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(block) == 0 {
		return nil
	}
	start := time.Now()
	data := make([]int, len(block))
	for i, s := range block {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{Format: e.format, Data: data, SourceBitDepth: BitsPerSample}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.totalFrames += uint64(len(block) / e.channels)
	e.encodeTime += time.Since(start)
	return nil
}

// Close rewrites the RIFF sizes; the underlying writer stays open.
func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Close()
}

func (e *WavEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *WavEncoder) AddEncodeTime(d time.Duration) {
	e.mu.Lock()
	e.encodeTime += d
	e.mu.Unlock()
}

func (e *WavEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
