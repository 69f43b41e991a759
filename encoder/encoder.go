package encoder

import (
	"fmt"
	"io"
	"time"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// Container names the file format a recording is written in.
type Container string

const (
	ContainerFLAC Container = "flac"
	ContainerWAV  Container = "wav"
)

// Ext returns the file extension without the dot.
func (c Container) Ext() string { return string(c) }

func ParseContainer(s string) (Container, error) {
	switch Container(s) {
	case ContainerFLAC, ContainerWAV:
		return Container(s), nil
	case "":
		return ContainerFLAC, nil
	}
	return "", fmt.Errorf("unknown container %q (use flac or wav)", s)
}

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

// New returns an encoder writing container c to w. Close finalises the
// stream headers but leaves w open.
func New(c Container, w io.WriteSeeker, sampleRate, channels int) (Encoder, error) {
	switch c {
	case ContainerFLAC:
		return NewFlac(w, sampleRate, channels)
	case ContainerWAV:
		return NewWav(w, sampleRate, channels), nil
	}
	return nil, fmt.Errorf("unknown container %q", c)
}
