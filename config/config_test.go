package config

import (
	"os"
	"path/filepath"
	"testing"

	"kandru/encoder"
	"kandru/onboard"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KANDRU_CONFIG", "KANDRU_STORAGE_DIR", "KANDRU_QUALITY", "KANDRU_CONTAINER",
		"KANDRU_DEVICE", "KANDRU_REGISTRATION_URL", "KANDRU_ACCOUNTS_DB",
		"KANDRU_AUTO_START", "KANDRU_COPY_URI", "KANDRU_BEEP",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	if cfg.Quality != DefaultQuality || cfg.Container != encoder.ContainerFLAC {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RegistrationURL != onboard.DefaultRegistrationURL {
		t.Errorf("RegistrationURL = %q", cfg.RegistrationURL)
	}
	if !cfg.Beep || cfg.AutoStart || cfg.CopyURI {
		t.Errorf("bool defaults = %+v", cfg)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	clearEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "kandru"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(xdg, "kandru", "config.toml")
	if err := os.WriteFile(path, []byte(`device = "USB Mic"`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != path || cfg.Device != "USB Mic" {
		t.Errorf("Load = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage_dir = "/srv/memos"
quality = 3
container = "wav"
auto_start = true
beep = false
copy_uri = true
registration_url = "https://register.example.org"
accounts_db = "/srv/accounts.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageDir != "/srv/memos" || cfg.Quality != 3 || cfg.Container != encoder.ContainerWAV {
		t.Errorf("Load = %+v", cfg)
	}
	if !cfg.AutoStart || cfg.Beep || !cfg.CopyURI {
		t.Errorf("bools = %+v", cfg)
	}
	if cfg.RegistrationURL != "https://register.example.org" || cfg.AccountsDB != "/srv/accounts.db" {
		t.Errorf("Load = %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "quality = 3\ncontainer = \"wav\"\nbeep = true\n")
	t.Setenv("KANDRU_QUALITY", "1")
	t.Setenv("KANDRU_CONTAINER", "flac")
	t.Setenv("KANDRU_BEEP", "false")
	t.Setenv("KANDRU_STORAGE_DIR", "/tmp/env-memos")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Quality != 1 || cfg.Container != encoder.ContainerFLAC || cfg.Beep {
		t.Errorf("env did not override file: %+v", cfg)
	}
	if cfg.StorageDir != "/tmp/env-memos" {
		t.Errorf("StorageDir = %q", cfg.StorageDir)
	}
}

func TestConfigEnvSelectsFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `device = "from env path"`)
	t.Setenv("KANDRU_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Device != "from env path" {
		t.Errorf("Device = %q", cfg.Device)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
	if _, err := Load(writeConfig(t, `container = "m4a"`)); err == nil {
		t.Error("unknown container should fail")
	}
	if _, err := Load(writeConfig(t, `quality = `)); err == nil {
		t.Error("malformed toml should fail")
	}

	t.Setenv("KANDRU_AUTO_START", "maybe")
	if _, err := Load(""); err == nil {
		t.Error("bad bool env should fail")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandTilde("~/memos"); got != filepath.Join(home, "memos") {
		t.Errorf("expandTilde = %q", got)
	}
	if got := expandTilde("/abs"); got != "/abs" {
		t.Errorf("expandTilde = %q", got)
	}
}
