package config

const (
	defaultDataDir = "~/.local/share/mirror"
	defaultLogDir  = "~/.local/share/mirror/logs"

	defaultCameraSource       = "mjpeg"
	defaultCameraDevice       = "/dev/video0"
	defaultStreamURL          = "http://127.0.0.1:8081/stream"
	defaultPlaybackIntervalMs = 100

	defaultDetectionURL            = "http://127.0.0.1:8090"
	defaultDetectionTimeoutSeconds = 2
	defaultMinRegionPx             = 30

	defaultEmbedServiceURL         = "http://127.0.0.1:8000"
	defaultEmbedDim                = 512
	defaultRecognizeTimeoutSeconds = 3
	defaultMaxInFlight             = 4
	defaultConfidenceThreshold     = 0.6

	defaultCooldownSeconds        = 30
	defaultNeutralDebounceSeconds = 2
	defaultTrackerMaxDistancePx   = 80

	defaultSpeechCommand          = "espeak-ng"
	defaultSpeechLanguage         = "en"
	defaultPlaybackCeilingSeconds = 15

	defaultWebBind = "127.0.0.1:8741"

	defaultNotifyRequestTimeout     = 10
	defaultUnknownLingerSeconds     = 60
	defaultNotifyDedupWindowSeconds = 600

	defaultResultQueueSize      = 16
	defaultEventQueueSize       = 64
	defaultShutdownGraceSeconds = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Camera: Camera{
			Source:             defaultCameraSource,
			StreamURL:          defaultStreamURL,
			Device:             defaultCameraDevice,
			PlaybackIntervalMs: defaultPlaybackIntervalMs,
			PlaybackLoop:       true,
		},
		Detection: Detection{
			ServiceURL:     defaultDetectionURL,
			TimeoutSeconds: defaultDetectionTimeoutSeconds,
			MinRegionPx:    defaultMinRegionPx,
		},
		Recognition: Recognition{
			EmbedServiceURL:     defaultEmbedServiceURL,
			EmbedDim:            defaultEmbedDim,
			TimeoutSeconds:      defaultRecognizeTimeoutSeconds,
			MaxInFlight:         defaultMaxInFlight,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Presence: Presence{
			CooldownSeconds:        defaultCooldownSeconds,
			NeutralDebounceSeconds: defaultNeutralDebounceSeconds,
			TrackerMaxDistancePx:   defaultTrackerMaxDistancePx,
		},
		Speech: Speech{
			Enabled:                true,
			Command:                defaultSpeechCommand,
			DefaultLanguage:        defaultSpeechLanguage,
			PlaybackCeilingSeconds: defaultPlaybackCeilingSeconds,
		},
		Web: Web{
			Enabled: true,
			Bind:    defaultWebBind,
		},
		Notifications: Notifications{
			RequestTimeout:       defaultNotifyRequestTimeout,
			CameraErrors:         true,
			UnknownLinger:        false,
			UnknownLingerSeconds: defaultUnknownLingerSeconds,
			DedupWindowSeconds:   defaultNotifyDedupWindowSeconds,
		},
		Workflow: Workflow{
			ResultQueueSize:      defaultResultQueueSize,
			EventQueueSize:       defaultEventQueueSize,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
