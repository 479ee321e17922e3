package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"subgen/internal/job"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateFetch() error {
	switch c.Fetch.AudioFormat {
	case "mp3", "m4a", "wav", "opus", "flac":
	default:
		return fmt.Errorf("fetch.audio_format: unsupported value %q", c.Fetch.AudioFormat)
	}
	if c.Fetch.StallGraceSeconds < 0 {
		return errors.New("fetch.stall_grace_seconds must be zero or positive")
	}
	if c.Fetch.TimeoutSeconds < 0 || c.Fetch.TimeoutSeconds > maxTimeoutMinute*60 {
		return fmt.Errorf("fetch.timeout_seconds must be between 0 and %d", maxTimeoutMinute*60)
	}
	return nil
}

func (c *Config) validateTranscribe() error {
	if _, err := job.ParseModelTier(c.Transcribe.Model); err != nil {
		return fmt.Errorf("transcribe.model: %w", err)
	}
	for tier := range c.Transcribe.ModelOverrides {
		if _, err := job.ParseModelTier(tier); err != nil {
			return fmt.Errorf("transcribe.model_overrides: %w", err)
		}
	}
	if strings.ContainsAny(c.Transcribe.Language, " \t/") {
		return fmt.Errorf("transcribe.language: invalid value %q", c.Transcribe.Language)
	}
	if c.Transcribe.TimeoutSeconds < 0 || c.Transcribe.TimeoutSeconds > maxTimeoutMinute*60 {
		return fmt.Errorf("transcribe.timeout_seconds must be between 0 and %d", maxTimeoutMinute*60)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > MaxConcurrency {
		return fmt.Errorf("batch.concurrency must be between 1 and %d", MaxConcurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
