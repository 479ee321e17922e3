package config

// MaxConcurrency caps batch.concurrency and the --concurrency override.
const MaxConcurrency = 16

const (
	defaultOutputDir          = "~/Downloads/subtitles"
	defaultLogDir             = "~/.local/share/subgen/logs"
	defaultHistoryPath        = "~/.local/share/subgen/history.db"
	defaultModelDir           = "~/.local/share/subgen/models"
	defaultCookiesFile        = "~/Downloads/youtube.txt"
	defaultFetchBinary        = "yt-dlp"
	defaultAudioFormat        = "mp3"
	defaultStallGraceSeconds  = 60
	defaultTranscribeBinary   = "whisper-cli"
	defaultModelTier          = "fastest"
	defaultLanguage           = "zh"
	defaultThreads            = 16
	defaultProcessors         = 1
	defaultConcurrency        = 1
	defaultCancelGraceSeconds = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMetricsBind        = "127.0.0.1:9464"
	defaultNtfyTimeout        = 10

	configDirName    = "subgen"
	configFileName   = "config.toml"
	projectFileName  = "subgen.toml"
	envCookiesFile   = "SUBGEN_COOKIES_FILE"
	envModelDir      = "SUBGEN_MODEL_DIR"
	maxTimeoutMinute = 24 * 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			WorkDir:     defaultWorkDir(),
			LogDir:      defaultLogDir,
			HistoryPath: defaultHistoryPath,
		},
		Fetch: Fetch{
			Binary:            defaultFetchBinary,
			CookiesFile:       defaultCookiesFile,
			UseCookies:        true,
			AudioFormat:       defaultAudioFormat,
			StallGraceSeconds: defaultStallGraceSeconds,
		},
		Transcribe: Transcribe{
			Binary:     defaultTranscribeBinary,
			ModelDir:   defaultModelDir,
			Model:      defaultModelTier,
			Language:   defaultLanguage,
			Threads:    defaultThreads,
			Processors: defaultProcessors,
		},
		Batch: Batch{
			Concurrency:        defaultConcurrency,
			CancelGraceSeconds: defaultCancelGraceSeconds,
			SkipExisting:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
			NotifyFailures:        true,
		},
	}
}
