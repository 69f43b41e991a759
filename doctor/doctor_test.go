package doctor

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kandru/audio"
	"kandru/encoder"
)

func testOptions(t *testing.T, ctx audio.Context) (Options, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	dir := t.TempDir()
	return Options{
		Audio:      ctx,
		StorageDir: dir,
		AccountsDB: filepath.Join(dir, "accounts.db"),
		Container:  encoder.ContainerFLAC,
		CaptureFor: 300 * time.Millisecond,
		Out:        &out,
	}, &out
}

func TestRunAllPass(t *testing.T) {
	ctx := audio.NewToneContext(440, 9000, 200*time.Millisecond, 44100, false)
	o, out := testOptions(t, ctx)

	if code := Run(o); code != 0 {
		t.Fatalf("Run = %d, output:\n%s", code, out)
	}
	for _, want := range []string{"[1/5]", "fake microphone", "peak level", "Voice Recorder", "0 account(s)", "SKIP"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunWithoutDevices(t *testing.T) {
	ctx := audio.NewToneContext(440, 9000, 200*time.Millisecond, 44100, false)
	ctx.Sources = nil
	o, out := testOptions(t, ctx)

	if code := Run(o); code != 1 {
		t.Fatalf("Run = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "no capture devices") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunCaptureFailure(t *testing.T) {
	ctx := audio.NewToneContext(440, 9000, 200*time.Millisecond, 44100, false)
	ctx.CaptureErr = errTest("device busy")
	o, out := testOptions(t, ctx)

	if code := Run(o); code != 1 {
		t.Fatalf("Run = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "device busy") {
		t.Errorf("output:\n%s", out)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
