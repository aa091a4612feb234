package config

const (
	defaultBaseURL            = "http://localhost:8000"
	defaultRequestTimeout     = 60
	defaultPollInterval       = 2
	defaultLanguage           = "sl"
	defaultSpeakerCount       = 2
	defaultEnableDiarization  = true
	defaultAnalysisProfile    = "generic-conversation-summary"
	defaultDemoFilenamePrefix = "demo-"
	defaultDataDir            = "~/.local/share/redline"
	defaultLogDir             = "~/.local/share/redline/logs"
	defaultStorePath          = "~/.local/share/redline/entries.db"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			BaseURL:        defaultBaseURL,
			RequestTimeout: defaultRequestTimeout,
			PollInterval:   defaultPollInterval,
		},
		Upload: Upload{
			Language:          defaultLanguage,
			SpeakerCount:      defaultSpeakerCount,
			EnableDiarization: defaultEnableDiarization,
		},
		Analysis: Analysis{
			DefaultProfile: defaultAnalysisProfile,
		},
		Demo: Demo{
			Enabled:        true,
			FilenamePrefix: defaultDemoFilenamePrefix,
		},
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			StorePath: defaultStorePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
