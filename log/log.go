package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	memoFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// Recording describes a capture session when it starts.
type Recording struct {
	ID         string
	Path       string
	Container  string
	Bitrate    int
	SampleRate uint32
	Device     string
}

// RecordingEnd describes how a capture session ended.
type RecordingEnd struct {
	ID        string
	Saved     bool
	DurationS float64
	Frames    uint64
	EncodeMs  float64
	PeakLevel int
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: KANDRU_LOG_PATH environment variable
	if envPath := os.Getenv("KANDRU_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func getDefaultDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "kandru", "logs"), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", "kandru"), nil
	}
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "kandru", "logs"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	memoPath := filepath.Join(dir, "memos_log.txt")
	memoFile, err = os.OpenFile(memoPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if memoFile != nil {
		memoFile.Close()
		memoFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(command, version string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("command", command).
		Str("version", version).
		Msg("session_start")
}

func RecordingStarted(r Recording) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("id", r.ID).
		Str("path", r.Path).
		Str("container", r.Container).
		Int("bitrate", r.Bitrate).
		Uint32("sample_rate", r.SampleRate).
		Str("device", r.Device).
		Msg("recording_start")
}

func RecordingStopped(e RecordingEnd) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("id", e.ID).
		Bool("saved", e.Saved).
		Float64("duration_s", e.DurationS).
		Uint64("frames", e.Frames).
		Float64("encode_ms", e.EncodeMs).
		Int("peak", e.PeakLevel).
		Msg("recording_stop")
}

// SavedMemo appends a kept recording to memos_log.txt.
func SavedMemo(path string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, path)
	memoFile.WriteString(line)
}

func Route(screen string, accounts int, invitee bool) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("screen", screen).
		Int("accounts", accounts).
		Bool("invitee", invitee).
		Msg("onboarding_route")
}
