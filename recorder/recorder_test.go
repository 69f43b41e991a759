package recorder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kandru/audio"
	"kandru/encoder"
)

func newTone(peak int16) *audio.FakeContext {
	return audio.NewToneContext(440, peak, 200*time.Millisecond, encoder.SampleRate, false)
}

func testConfig(t *testing.T, c encoder.Container) Config {
	t.Helper()
	return Config{
		Source:     SourceMic,
		Container:  c,
		Bitrate:    96000,
		SampleRate: encoder.SampleRate,
		OutputPath: filepath.Join(t.TempDir(), "nested", "dir", "memo."+c.Ext()),
	}
}

func TestRecordToFile(t *testing.T) {
	for _, c := range []encoder.Container{encoder.ContainerFLAC, encoder.ContainerWAV} {
		t.Run(string(c), func(t *testing.T) {
			cfg := testConfig(t, c)
			r := New(newTone(9000), cfg)
			if err := r.Prepare(); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if err := r.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if err := r.Stop(); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			r.Release()

			info, err := os.Stat(cfg.OutputPath)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() <= audio.WAVHeaderSize {
				t.Errorf("output size = %d, expected audio data", info.Size())
			}
			if r.Frames() < uint64(encoder.SampleRate/10) {
				t.Errorf("Frames = %d, want at least %d", r.Frames(), encoder.SampleRate/10)
			}
		})
	}
}

func TestMaxAmplitudeResetsOnRead(t *testing.T) {
	r := New(newTone(12000), testConfig(t, encoder.ContainerFLAC))
	if err := r.Prepare(); err != nil {
		t.Fatal(err)
	}
	defer r.Release()
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	if got := r.MaxAmplitude(); got < 11000 || got > 12000 {
		t.Errorf("first MaxAmplitude = %d, want close to 12000", got)
	}
	// Only silence follows the tone.
	if got := r.MaxAmplitude(); got != 0 {
		t.Errorf("second MaxAmplitude = %d, want 0", got)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestStateErrors(t *testing.T) {
	r := New(newTone(1000), testConfig(t, encoder.ContainerFLAC))
	if err := r.Start(); !errors.Is(err, ErrState) {
		t.Errorf("Start before Prepare = %v, want ErrState", err)
	}
	if err := r.Stop(); !errors.Is(err, ErrState) {
		t.Errorf("Stop before Start = %v, want ErrState", err)
	}
	r.Release()
	r.Release()
	if err := r.Prepare(); !errors.Is(err, ErrState) {
		t.Errorf("Prepare after Release = %v, want ErrState", err)
	}
}

func TestPrepareFailures(t *testing.T) {
	cfg := testConfig(t, encoder.ContainerFLAC)
	cfg.OutputPath = ""
	if err := New(newTone(1000), cfg).Prepare(); !errors.Is(err, ErrConfig) {
		t.Errorf("empty path = %v, want ErrConfig", err)
	}

	cfg = testConfig(t, encoder.ContainerFLAC)
	ctx := newTone(1000)
	ctx.CaptureErr = errors.New("device busy")
	r := New(ctx, cfg)
	if err := r.Prepare(); err == nil {
		t.Fatal("expected prepare error")
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Errorf("output file left behind after failed prepare: %v", err)
	}
}

func TestStartFailureKeepsPrepared(t *testing.T) {
	ctx := newTone(1000)
	ctx.StartErr = errors.New("stream refused")
	r := New(ctx, testConfig(t, encoder.ContainerFLAC))
	if err := r.Prepare(); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err == nil {
		t.Fatal("expected start error")
	}
	if err := r.Stop(); !errors.Is(err, ErrState) {
		t.Errorf("Stop after failed start = %v, want ErrState", err)
	}
	r.Release()
}

func TestDefaults(t *testing.T) {
	r := New(nil, Config{OutputPath: "x"})
	cfg := r.Config()
	if cfg.SampleRate != encoder.SampleRate || cfg.Channels != 1 || cfg.Container != encoder.ContainerFLAC {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := r.Prepare(); !errors.Is(err, ErrConfig) {
		t.Errorf("Prepare without context = %v, want ErrConfig", err)
	}
}
