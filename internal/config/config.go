// Package config handles loading and managing mairix configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mchl/mairix/internal/fileutil"
)

// Config represents the mairix configuration (spec §6's configuration-file
// loader collaborator, plus the environment overrides of the same section).
type Config struct {
	FolderBase     string   `toml:"folder_base"`
	MaildirFolders []string `toml:"maildir_folders"`
	MHFolders      []string `toml:"mh_folders"`
	Mboxen         []string `toml:"mboxen"`
	MFolder        string   `toml:"mfolder"`
	Database       string   `toml:"database"`

	// configPath is the resolved path to the loaded config file, if any.
	configPath string
}

// DefaultHome returns the default mairix home directory, respecting
// MAIRIX_HOME if set.
func DefaultHome() string {
	if h := os.Getenv("MAIRIX_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mairix"
	}
	return filepath.Join(home, ".mairix")
}

// NewDefaultConfig returns a configuration with default values.
func NewDefaultConfig() *Config {
	home := DefaultHome()
	return &Config{
		FolderBase: filepath.Join(home, "mail"),
		MFolder:    filepath.Join(home, "mfolder"),
		Database:   filepath.Join(home, "database"),
	}
}

// envOverrides are spec §6's MAIRIX_* environment variables, applied after
// the config file so they always take precedence.
var envOverrides = []struct {
	name  string
	apply func(*Config, string)
}{
	{"MAIRIX_FOLDER_BASE", func(c *Config, v string) { c.FolderBase = v }},
	{"MAIRIX_MAILDIR_FOLDERS", func(c *Config, v string) { c.MaildirFolders = splitList(v) }},
	{"MAIRIX_MH_FOLDERS", func(c *Config, v string) { c.MHFolders = splitList(v) }},
	{"MAIRIX_MBOXEN", func(c *Config, v string) { c.Mboxen = splitList(v) }},
	{"MAIRIX_MFOLDER", func(c *Config, v string) { c.MFolder = v }},
	{"MAIRIX_DATABASE", func(c *Config, v string) { c.Database = v }},
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ":") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads the configuration from path (the rc file named by -f), falling
// back to defaults if path is empty and no default rc file exists.
// Environment overrides are applied last. Every folder_base/mboxen/
// maildir_folders/mh_folders/mfolder/database value is ~- and $VAR-expanded
// (spec §6, via the original expandstr.c behaviour).
func Load(path string) (*Config, error) {
	explicit := path != ""
	cfg := NewDefaultConfig()

	if !explicit {
		path = filepath.Join(DefaultHome(), "config")
	} else {
		path = expandPath(path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else {
		cfg.configPath = path
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok {
			o.apply(cfg, v)
		}
	}

	cfg.FolderBase = expandEnvPath(cfg.FolderBase)
	cfg.MFolder = expandEnvPath(cfg.MFolder)
	cfg.Database = expandEnvPath(cfg.Database)
	for i := range cfg.MaildirFolders {
		cfg.MaildirFolders[i] = expandEnvPath(cfg.MaildirFolders[i])
	}
	for i := range cfg.MHFolders {
		cfg.MHFolders[i] = expandEnvPath(cfg.MHFolders[i])
	}
	for i := range cfg.Mboxen {
		cfg.Mboxen[i] = expandEnvPath(cfg.Mboxen[i])
	}

	return cfg, nil
}

// ConfigFilePath returns the config file path actually loaded, or the
// default location if none was found.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(DefaultHome(), "config")
}

// EnsureHomeDir creates the mairix home directory if it doesn't exist.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(DefaultHome(), 0700)
}

// expandEnvPath expands both ~ and $VAR/${VAR} references, matching the
// reference implementation's expandstr.c: ~ expands only the user's own
// home directory (not ~other), and env vars expand via the process
// environment.
func expandEnvPath(path string) string {
	if path == "" {
		return path
	}
	return os.ExpandEnv(expandPath(path))
}

// expandPath expands ~ to the user's home directory. Only expands paths
// that are exactly "~" or start with "~/".
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if runtime.GOOS == "windows" && len(path) >= 2 &&
		((path[0] == '\'' && path[len(path)-1] == '\'') ||
			(path[0] == '"' && path[len(path)-1] == '"')) {
		path = path[1 : len(path)-1]
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		suffix := path[2:]
		for len(suffix) > 0 && (suffix[0] == '/' || suffix[0] == os.PathSeparator) {
			suffix = suffix[1:]
		}
		return filepath.Join(home, suffix)
	}
	return path
}
