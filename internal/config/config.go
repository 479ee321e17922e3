package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subgen/internal/job"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	WorkDir     string `toml:"work_dir"`
	LogDir      string `toml:"log_dir"`
	HistoryPath string `toml:"history_path"`
}

// Fetch configures the audio download tool.
type Fetch struct {
	Binary            string `toml:"binary"`
	FFmpegLocation    string `toml:"ffmpeg_location"`
	CookiesFile       string `toml:"cookies_file"`
	UseCookies        bool   `toml:"use_cookies"`
	AudioFormat       string `toml:"audio_format"`
	StallGraceSeconds int    `toml:"stall_grace_seconds"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Transcribe configures the speech recognition engine.
type Transcribe struct {
	Binary         string            `toml:"binary"`
	ModelDir       string            `toml:"model_dir"`
	Model          string            `toml:"model"`
	Language       string            `toml:"language"`
	Threads        int               `toml:"threads"`
	Processors     int               `toml:"processors"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	ModelOverrides map[string]string `toml:"model_overrides"`
}

// Batch configures scheduling.
type Batch struct {
	Concurrency        int  `toml:"concurrency"`
	CancelGraceSeconds int  `toml:"cancel_grace_seconds"`
	SkipExisting       bool `toml:"skip_existing"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics controls the optional Prometheus endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Notifications configures ntfy push messages.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyFailures        bool   `toml:"notify_failures"`
}

// Config encapsulates all configuration values for subgen.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Fetch         Fetch         `toml:"fetch"`
	Transcribe    Transcribe    `toml:"transcribe"`
	Batch         Batch         `toml:"batch"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join("~", ".config", configDirName, configFileName))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Paths.HistoryPath)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CookiesPath returns the cookies file to hand to the download tool, or ""
// when cookies are disabled or the file does not exist.
func (c *Config) CookiesPath() string {
	if !c.Fetch.UseCookies {
		return ""
	}
	path := strings.TrimSpace(c.Fetch.CookiesFile)
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return ""
	}
	return path
}

// ModelTier returns the configured default model tier.
func (c *Config) ModelTier() job.ModelTier {
	return job.ModelTier(c.Transcribe.Model)
}

// JobOptions snapshots the configuration into per-job options.
func (c *Config) JobOptions() job.Options {
	return job.Options{
		Model:        c.ModelTier(),
		Language:     c.Transcribe.Language,
		OutputDir:    c.Paths.OutputDir,
		CookiesFile:  c.CookiesPath(),
		SkipExisting: c.Batch.SkipExisting,
	}
}

// FetchTimeout returns the hard download timeout; zero means none.
func (c *Config) FetchTimeout() time.Duration {
	return seconds(c.Fetch.TimeoutSeconds)
}

// StallGrace returns how long the download tool may stay silent before a
// stall is reported.
func (c *Config) StallGrace() time.Duration {
	return seconds(c.Fetch.StallGraceSeconds)
}

// TranscribeTimeout returns the hard transcription timeout; zero means none.
func (c *Config) TranscribeTimeout() time.Duration {
	return seconds(c.Transcribe.TimeoutSeconds)
}

// CancelGrace returns how long a cancelled process group gets before SIGKILL.
func (c *Config) CancelGrace() time.Duration {
	return seconds(c.Batch.CancelGraceSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, configDirName, "work")
	}
	return filepath.Join("~", ".cache", configDirName, "work")
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var sb strings.Builder
	encoder := toml.NewEncoder(&sb).SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return sb.String(), nil
}
