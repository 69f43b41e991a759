package encoder

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
)

func sine(n int, peak float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Sin(2*math.Pi*440*float64(i)/SampleRate) * peak)
	}
	return out
}

func encodeFile(t *testing.T, c Container, samples []int16, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out."+c.Ext())
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc, err := New(c, f, SampleRate, channels)
	if err != nil {
		t.Fatalf("New(%s): %v", c, err)
	}
	step := BlockSize * channels
	for i := 0; i < len(samples); i += step {
		end := min(i+step, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			t.Fatalf("EncodeBlock at offset %d: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, want := enc.TotalFrames(), uint64(len(samples)/channels); got != want {
		t.Errorf("TotalFrames = %d, want %d", got, want)
	}
	return path
}

func TestFlacEncoder(t *testing.T) {
	samples := sine(SampleRate/2, 8000)
	path := encodeFile(t, ContainerFLAC, samples, 1)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	stream, err := flac.Open(path)
	if err != nil {
		t.Fatalf("flac.Open: %v", err)
	}
	defer stream.Close()

	if stream.Info.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", stream.Info.SampleRate, SampleRate)
	}
	decoded := 0
	for {
		fr, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		decoded += fr.Subframes[0].NSamples
	}
	if decoded != len(samples) {
		t.Errorf("decoded %d samples, want %d", decoded, len(samples))
	}
}

func TestFlacEncoderEmpty(t *testing.T) {
	path := encodeFile(t, ContainerFLAC, nil, 1)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestFlacEncoderStereo(t *testing.T) {
	mono := sine(BlockSize+100, 4000)
	stereo := make([]int16, 0, len(mono)*2)
	for _, s := range mono {
		stereo = append(stereo, s, -s)
	}
	encodeFile(t, ContainerFLAC, stereo, 2)
}

func TestFlacEncoderRejectsOversizedBlock(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "big.flac"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc, err := NewFlac(f, SampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.EncodeBlock(make([]int16, BlockSize+1)); err == nil {
		t.Fatal("expected error for oversized block")
	}
}

func TestParseContainer(t *testing.T) {
	for in, want := range map[string]Container{"": ContainerFLAC, "flac": ContainerFLAC, "wav": ContainerWAV} {
		got, err := ParseContainer(in)
		if err != nil || got != want {
			t.Errorf("ParseContainer(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseContainer("m4a"); err == nil {
		t.Error("expected error for m4a")
	}
}
