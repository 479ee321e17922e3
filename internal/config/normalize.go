package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	if err := c.normalizeTranscribe(); err != nil {
		return err
	}
	c.normalizeBatch()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	if c.Metrics.Bind == "" {
		c.Metrics.Bind = defaultMetricsBind
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryPath, err = expandPath(c.Paths.HistoryPath); err != nil {
		return fmt.Errorf("paths.history_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() error {
	c.Fetch.Binary = strings.TrimSpace(c.Fetch.Binary)
	if c.Fetch.Binary == "" {
		c.Fetch.Binary = defaultFetchBinary
	}
	if value, ok := os.LookupEnv(envCookiesFile); ok && strings.TrimSpace(value) != "" {
		c.Fetch.CookiesFile = value
	}
	var err error
	if c.Fetch.CookiesFile, err = expandPath(strings.TrimSpace(c.Fetch.CookiesFile)); err != nil {
		return fmt.Errorf("fetch.cookies_file: %w", err)
	}
	if c.Fetch.FFmpegLocation, err = expandPath(strings.TrimSpace(c.Fetch.FFmpegLocation)); err != nil {
		return fmt.Errorf("fetch.ffmpeg_location: %w", err)
	}
	c.Fetch.AudioFormat = strings.ToLower(strings.TrimSpace(c.Fetch.AudioFormat))
	if c.Fetch.AudioFormat == "" {
		c.Fetch.AudioFormat = defaultAudioFormat
	}
	return nil
}

func (c *Config) normalizeTranscribe() error {
	c.Transcribe.Binary = strings.TrimSpace(c.Transcribe.Binary)
	if c.Transcribe.Binary == "" {
		c.Transcribe.Binary = defaultTranscribeBinary
	}
	if value, ok := os.LookupEnv(envModelDir); ok && strings.TrimSpace(value) != "" {
		c.Transcribe.ModelDir = value
	}
	if strings.TrimSpace(c.Transcribe.ModelDir) == "" {
		c.Transcribe.ModelDir = defaultModelDir
	}
	var err error
	if c.Transcribe.ModelDir, err = expandPath(strings.TrimSpace(c.Transcribe.ModelDir)); err != nil {
		return fmt.Errorf("transcribe.model_dir: %w", err)
	}
	c.Transcribe.Model = strings.ToLower(strings.TrimSpace(c.Transcribe.Model))
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = defaultModelTier
	}
	c.Transcribe.Language = strings.ToLower(strings.TrimSpace(c.Transcribe.Language))
	if c.Transcribe.Language == "" {
		c.Transcribe.Language = defaultLanguage
	}
	if c.Transcribe.Threads <= 0 {
		c.Transcribe.Threads = defaultThreads
	}
	if c.Transcribe.Processors <= 0 {
		c.Transcribe.Processors = defaultProcessors
	}
	if len(c.Transcribe.ModelOverrides) > 0 {
		overrides := make(map[string]string, len(c.Transcribe.ModelOverrides))
		for tier, path := range c.Transcribe.ModelOverrides {
			key := strings.ToLower(strings.TrimSpace(tier))
			expanded, err := expandPath(strings.TrimSpace(path))
			if err != nil {
				return fmt.Errorf("transcribe.model_overrides.%s: %w", key, err)
			}
			if key != "" && expanded != "" {
				overrides[key] = expanded
			}
		}
		c.Transcribe.ModelOverrides = overrides
	}
	return nil
}

func (c *Config) normalizeBatch() {
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = defaultConcurrency
	}
	if c.Batch.CancelGraceSeconds <= 0 {
		c.Batch.CancelGraceSeconds = defaultCancelGraceSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
