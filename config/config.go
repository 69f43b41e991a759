// Package config loads settings from config.toml and KANDRU_* environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"kandru/encoder"
	"kandru/onboard"
)

const DefaultQuality = 2

type Config struct {
	StorageDir      string
	Quality         float64
	Container       encoder.Container
	Device          string
	AutoStart       bool
	RegistrationURL string
	AccountsDB      string
	CopyURI         bool
	Beep            bool

	// Path is the config file that was read, empty when none existed.
	Path string
}

type fileConfig struct {
	StorageDir      string   `toml:"storage_dir"`
	Quality         *float64 `toml:"quality"`
	Container       string   `toml:"container"`
	Device          string   `toml:"device"`
	AutoStart       *bool    `toml:"auto_start"`
	RegistrationURL string   `toml:"registration_url"`
	AccountsDB      string   `toml:"accounts_db"`
	CopyURI         *bool    `toml:"copy_uri"`
	Beep            *bool    `toml:"beep"`
}

func Default() *Config {
	return &Config{
		StorageDir:      defaultStorageDir(),
		Quality:         DefaultQuality,
		Container:       encoder.ContainerFLAC,
		RegistrationURL: onboard.DefaultRegistrationURL,
		AccountsDB:      filepath.Join(dataDir(), "accounts.db"),
		Beep:            true,
	}
}

// Load reads path, or the default location when path is empty. A missing
// default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("KANDRU_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		var fc fileConfig
		_, err := toml.DecodeFile(path, &fc)
		switch {
		case err == nil:
			if err := cfg.applyFile(fc); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			cfg.Path = path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.StorageDir != "" {
		c.StorageDir = expandTilde(fc.StorageDir)
	}
	if fc.Quality != nil {
		c.Quality = *fc.Quality
	}
	if fc.Container != "" {
		ct, err := encoder.ParseContainer(fc.Container)
		if err != nil {
			return err
		}
		c.Container = ct
	}
	if fc.Device != "" {
		c.Device = fc.Device
	}
	if fc.AutoStart != nil {
		c.AutoStart = *fc.AutoStart
	}
	if fc.RegistrationURL != "" {
		c.RegistrationURL = fc.RegistrationURL
	}
	if fc.AccountsDB != "" {
		c.AccountsDB = expandTilde(fc.AccountsDB)
	}
	if fc.CopyURI != nil {
		c.CopyURI = *fc.CopyURI
	}
	if fc.Beep != nil {
		c.Beep = *fc.Beep
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("KANDRU_STORAGE_DIR"); v != "" {
		c.StorageDir = expandTilde(v)
	}
	if v := os.Getenv("KANDRU_QUALITY"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("KANDRU_QUALITY: %w", err)
		}
		c.Quality = q
	}
	if v := os.Getenv("KANDRU_CONTAINER"); v != "" {
		ct, err := encoder.ParseContainer(v)
		if err != nil {
			return fmt.Errorf("KANDRU_CONTAINER: %w", err)
		}
		c.Container = ct
	}
	if v := os.Getenv("KANDRU_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("KANDRU_REGISTRATION_URL"); v != "" {
		c.RegistrationURL = v
	}
	if v := os.Getenv("KANDRU_ACCOUNTS_DB"); v != "" {
		c.AccountsDB = expandTilde(v)
	}
	for name, dst := range map[string]*bool{
		"KANDRU_AUTO_START": &c.AutoStart,
		"KANDRU_COPY_URI":   &c.CopyURI,
		"KANDRU_BEEP":       &c.Beep,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/kandru/config.toml, falling back to
// ~/.config/kandru/config.toml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kandru", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "kandru", "config.toml")
	}
	return ""
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "kandru")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "kandru")
	}
	return filepath.Join(".", "kandru")
}

func defaultStorageDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
