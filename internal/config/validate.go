package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateWeb(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Source {
	case "mjpeg":
		if strings.TrimSpace(c.Camera.StreamURL) == "" {
			return errors.New("camera.stream_url must be set when camera.source is \"mjpeg\"")
		}
		if _, err := url.Parse(c.Camera.StreamURL); err != nil {
			return fmt.Errorf("camera.stream_url: %w", err)
		}
	case "playback":
		if strings.TrimSpace(c.Camera.PlaybackDir) == "" {
			return errors.New("camera.playback_dir must be set when camera.source is \"playback\"")
		}
	default:
		return fmt.Errorf("camera.source: unsupported value %q (expected \"mjpeg\" or \"playback\")", c.Camera.Source)
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.ConfidenceThreshold <= 0 || c.Recognition.ConfidenceThreshold > 2 {
		return errors.New("recognition.confidence_threshold must be in (0, 2]")
	}
	if strings.TrimSpace(c.Recognition.EmbedServiceURL) == "" {
		return errors.New("recognition.embed_service_url must be set")
	}
	if strings.TrimSpace(c.Detection.ServiceURL) == "" {
		return errors.New("detection.service_url must be set")
	}
	return nil
}

func (c *Config) validateWeb() error {
	if !c.Web.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Web.Bind) == "" {
		return errors.New("web.bind must be set when web.enabled is true")
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
