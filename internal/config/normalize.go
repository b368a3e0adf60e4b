package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCamera()
	c.normalizeRecognition()
	c.normalizeSpeech()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Camera.PlaybackDir != "" {
		if c.Camera.PlaybackDir, err = expandPath(c.Camera.PlaybackDir); err != nil {
			return fmt.Errorf("camera.playback_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeCamera() {
	c.Camera.Source = strings.ToLower(strings.TrimSpace(c.Camera.Source))
	if c.Camera.Source == "" {
		c.Camera.Source = defaultCameraSource
	}
	if c.Camera.PlaybackIntervalMs <= 0 {
		c.Camera.PlaybackIntervalMs = defaultPlaybackIntervalMs
	}
	if c.Detection.TimeoutSeconds <= 0 {
		c.Detection.TimeoutSeconds = defaultDetectionTimeoutSeconds
	}
	if c.Detection.MinRegionPx <= 0 {
		c.Detection.MinRegionPx = defaultMinRegionPx
	}
}

func (c *Config) normalizeRecognition() {
	if c.Recognition.EmbedDim <= 0 {
		c.Recognition.EmbedDim = defaultEmbedDim
	}
	if c.Recognition.TimeoutSeconds <= 0 {
		c.Recognition.TimeoutSeconds = defaultRecognizeTimeoutSeconds
	}
	if c.Recognition.MaxInFlight <= 0 {
		c.Recognition.MaxInFlight = defaultMaxInFlight
	}
	if c.Presence.CooldownSeconds <= 0 {
		c.Presence.CooldownSeconds = defaultCooldownSeconds
	}
	if c.Presence.NeutralDebounceSeconds < 0 {
		c.Presence.NeutralDebounceSeconds = defaultNeutralDebounceSeconds
	}
	if c.Presence.TrackerMaxDistancePx <= 0 {
		c.Presence.TrackerMaxDistancePx = defaultTrackerMaxDistancePx
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Command = strings.TrimSpace(c.Speech.Command)
	if c.Speech.Command == "" {
		c.Speech.Command = defaultSpeechCommand
	}
	c.Speech.DefaultLanguage = strings.TrimSpace(c.Speech.DefaultLanguage)
	if c.Speech.DefaultLanguage == "" {
		c.Speech.DefaultLanguage = defaultSpeechLanguage
	}
	if c.Speech.PlaybackCeilingSeconds <= 0 {
		c.Speech.PlaybackCeilingSeconds = defaultPlaybackCeilingSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ResultQueueSize <= 0 {
		c.Workflow.ResultQueueSize = defaultResultQueueSize
	}
	if c.Workflow.EventQueueSize <= 0 {
		c.Workflow.EventQueueSize = defaultEventQueueSize
	}
	if c.Workflow.ShutdownGraceSeconds <= 0 {
		c.Workflow.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.UnknownLingerSeconds <= 0 {
		c.Notifications.UnknownLingerSeconds = defaultUnknownLingerSeconds
	}
	if c.Notifications.DedupWindowSeconds <= 0 {
		c.Notifications.DedupWindowSeconds = defaultNotifyDedupWindowSeconds
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
