package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("KANDRU_LOG_PATH", "/tmp/kandru-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/kandru-env-log" {
		t.Errorf("got %q, want /tmp/kandru-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv("KANDRU_LOG_PATH", "/tmp/kandru-env-log")
	got, err := ResolveDir("/tmp/flag-log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/flag-log" {
		t.Errorf("got %q, want /tmp/flag-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("KANDRU_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "kandru") {
		t.Errorf("default dir %q does not mention kandru", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "memos_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestSavedMemo(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	SavedMemo("/home/u/Voice Recorder/RECORDING_20240101_101010000.flac")

	data, err := os.ReadFile(filepath.Join(tmp, "memos_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "RECORDING_20240101_101010000.flac") {
		t.Errorf("memos_log.txt missing path, got: %q", line)
	}
	// format: "2006-01-02 15:04:05\t[pid]\tpath\n"
	if strings.Count(line, "\t") != 2 {
		t.Errorf("expected tab-separated format, got: %q", line)
	}
}

func TestStructuredEvents(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	RecordingStarted(Recording{ID: "abc", Path: "/x.flac", Container: "flac", Bitrate: 96000, SampleRate: 44100})
	RecordingStopped(RecordingEnd{ID: "abc", Saved: true, DurationS: 1.5})
	Route("edit_account", 1, true)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"recording_start", "bitrate=96000", "recording_stop", "saved=true", "onboarding_route", "screen=edit_account"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics log missing %q:\n%s", want, out)
		}
	}
}

func TestSilentBeforeInit(t *testing.T) {
	setupLogDir(t)
	// none of these may panic without Init
	Info("x")
	Warnf("y %d", 1)
	SavedMemo("/z")
	Route("manage_accounts", 0, false)
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
