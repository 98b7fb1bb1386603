package config

import (
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/util"
	"log"
	"os"
	"time"
)

type Config struct {
	AppEnv      string   `env:"APP_ENV"`
	Addr        string   `env:"ADDR"`
	Mode        string   `env:"MODE"`
	CORSOrigins []string `env:"CORS_ORIGINS"`
	Log         logger.LogConfig

	DBDriver          string        `env:"DB_DRIVER"`
	DSN               string        `env:"DSN"`
	DBHost            string        `env:"DB_HOST"`
	DBPort            int           `env:"DB_PORT"`
	DBName            string        `env:"DB_NAME"`
	DBUser            string        `env:"DB_USER"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBSSLMode         string        `env:"DB_SSLMODE"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME"`

	StorageDriver       string `env:"STORAGE_DRIVER"`
	GCPProjectID        string `env:"GCP_PROJECT_ID"`
	GCSBucket           string `env:"GCS_BUCKET_NAME"`
	GCPServiceAccount   string `env:"GCP_SERVICE_ACCOUNT_KEY"`
	GCPKeyFile          string `env:"GCP_KEY_FILE"`
	LocalStoragePath    string `env:"LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"LOCAL_STORAGE_BASE_URL"`
	COSBucketURL        string `env:"COS_BUCKET_URL"`
	COSSecretID         string `env:"COS_SECRET_ID"`
	COSSecretKey        string `env:"COS_SECRET_KEY"`
	MinioEndpoint       string `env:"MINIO_ENDPOINT"`
	MinioAccessKey      string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey      string `env:"MINIO_SECRET_KEY"`
	MinioBucket         string `env:"MINIO_BUCKET"`
	MinioUseSSL         bool   `env:"MINIO_USE_SSL"`
	MinioPublicBase     string `env:"MINIO_PUBLIC_BASE"`

	SpeechDriver        string   `env:"SPEECH_DRIVER"`
	SpeechLanguage      string   `env:"SPEECH_LANGUAGE"`
	SpeechAltLanguages  []string `env:"SPEECH_ALT_LANGUAGES"`
	SpeechMinConfidence float64  `env:"SPEECH_MIN_CONFIDENCE"`
	OpenAIAPIKey        string   `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string   `env:"OPENAI_BASE_URL"`
	WhisperModel        string   `env:"WHISPER_MODEL"`
	GeminiAPIKey        string   `env:"GEMINI_API_KEY"`
	GeminiModel         string   `env:"GEMINI_MODEL"`
	StaticTranscript    string   `env:"STATIC_TRANSCRIPT"`

	BannedWords      []string `env:"MODERATION_BANNED_WORDS"`
	BannedWordsFile  string   `env:"MODERATION_WORDS_FILE"`
	ModerationMaxLen int      `env:"MODERATION_MAX_LENGTH"`

	PipelineWorkers       int           `env:"PIPELINE_WORKERS"`
	PipelineQueueSize     int           `env:"PIPELINE_QUEUE_SIZE"`
	PipelineTaskTimeout   time.Duration `env:"PIPELINE_TASK_TIMEOUT"`
	PipelineSweepSchedule string        `env:"PIPELINE_SWEEP_SCHEDULE"`
	PipelineStaleAfter    time.Duration `env:"PIPELINE_STALE_AFTER"`

	CacheType       string        `env:"CACHE_TYPE"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB"`
	DisplayCacheTTL time.Duration `env:"DISPLAY_CACHE_TTL"`

	RateLimitUpload string `env:"RATE_LIMIT_UPLOAD"`
	MaxUploadBytes  int64  `env:"MAX_UPLOAD_BYTES"`

	SearchEnabled bool   `env:"SEARCH_ENABLED"`
	SearchPath    string `env:"SEARCH_PATH"`

	GeoIPDB        string `env:"GEOIP_DB"`
	DefaultLang    string `env:"DEFAULT_LANG"`
	DebugEnabled   bool   `env:"DEBUG_ROUTES"`
	AdminAPISecret string `env:"ADMIN_API_SECRET"`
}

var GlobalConfig *Config

func Load() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg := &Config{
		AppEnv:      env,
		Addr:        util.GetEnvOr("ADDR", ":8080"),
		Mode:        util.GetEnvOr("MODE", "debug"),
		CORSOrigins: util.GetListEnv("CORS_ORIGINS"),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},

		DBDriver:          util.GetEnvOr("DB_DRIVER", "sqlite"),
		DSN:               util.GetEnv("DSN"),
		DBHost:            util.GetEnv("DB_HOST"),
		DBPort:            int(util.GetIntEnv("DB_PORT")),
		DBName:            util.GetEnv("DB_NAME"),
		DBUser:            util.GetEnv("DB_USER"),
		DBPassword:        util.GetEnv("DB_PASSWORD"),
		DBSSLMode:         util.GetEnv("DB_SSLMODE"),
		DBMaxOpenConns:    int(util.GetIntEnvOr("DB_MAX_OPEN_CONNS", 10)),
		DBMaxIdleConns:    int(util.GetIntEnvOr("DB_MAX_IDLE_CONNS", 5)),
		DBConnMaxLifetime: util.GetDurationEnvOr("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		StorageDriver:       util.GetEnvOr("STORAGE_DRIVER", "local"),
		GCPProjectID:        util.GetEnv("GCP_PROJECT_ID"),
		GCSBucket:           util.GetEnv("GCS_BUCKET_NAME"),
		GCPServiceAccount:   util.GetEnv("GCP_SERVICE_ACCOUNT_KEY"),
		GCPKeyFile:          util.GetEnv("GCP_KEY_FILE"),
		LocalStoragePath:    util.GetEnvOr("LOCAL_STORAGE_PATH", "./uploads"),
		LocalStorageBaseURL: util.GetEnvOr("LOCAL_STORAGE_BASE_URL", "/uploads"),
		COSBucketURL:        util.GetEnv("COS_BUCKET_URL"),
		COSSecretID:         util.GetEnv("COS_SECRET_ID"),
		COSSecretKey:        util.GetEnv("COS_SECRET_KEY"),
		MinioEndpoint:       util.GetEnv("MINIO_ENDPOINT"),
		MinioAccessKey:      util.GetEnv("MINIO_ACCESS_KEY"),
		MinioSecretKey:      util.GetEnv("MINIO_SECRET_KEY"),
		MinioBucket:         util.GetEnvOr("MINIO_BUCKET", "voice-messages"),
		MinioUseSSL:         util.GetBoolEnv("MINIO_USE_SSL"),
		MinioPublicBase:     util.GetEnv("MINIO_PUBLIC_BASE"),

		SpeechDriver:        util.GetEnvOr("SPEECH_DRIVER", "static"),
		SpeechLanguage:      util.GetEnvOr("SPEECH_LANGUAGE", "ko-KR"),
		SpeechAltLanguages:  util.GetListEnv("SPEECH_ALT_LANGUAGES"),
		SpeechMinConfidence: util.GetFloatEnvOr("SPEECH_MIN_CONFIDENCE", 0.5),
		OpenAIAPIKey:        util.GetEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:       util.GetEnv("OPENAI_BASE_URL"),
		WhisperModel:        util.GetEnvOr("WHISPER_MODEL", "whisper-1"),
		GeminiAPIKey:        util.GetEnv("GEMINI_API_KEY"),
		GeminiModel:         util.GetEnvOr("GEMINI_MODEL", "gemini-2.0-flash"),
		StaticTranscript:    util.GetEnv("STATIC_TRANSCRIPT"),

		BannedWords:      util.GetListEnv("MODERATION_BANNED_WORDS"),
		BannedWordsFile:  util.GetEnv("MODERATION_WORDS_FILE"),
		ModerationMaxLen: int(util.GetIntEnvOr("MODERATION_MAX_LENGTH", 500)),

		PipelineWorkers:       int(util.GetIntEnvOr("PIPELINE_WORKERS", 4)),
		PipelineQueueSize:     int(util.GetIntEnvOr("PIPELINE_QUEUE_SIZE", 64)),
		PipelineTaskTimeout:   util.GetDurationEnvOr("PIPELINE_TASK_TIMEOUT", 10*time.Minute),
		PipelineSweepSchedule: util.GetEnvOr("PIPELINE_SWEEP_SCHEDULE", "@every 5m"),
		PipelineStaleAfter:    util.GetDurationEnvOr("PIPELINE_STALE_AFTER", 30*time.Minute),

		CacheType:       util.GetEnvOr("CACHE_TYPE", "gocache"),
		RedisAddr:       util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   util.GetEnv("REDIS_PASSWORD"),
		RedisDB:         int(util.GetIntEnv("REDIS_DB")),
		DisplayCacheTTL: util.GetDurationEnvOr("DISPLAY_CACHE_TTL", 10*time.Second),

		RateLimitUpload: util.GetEnvOr("RATE_LIMIT_UPLOAD", "10-M"),
		MaxUploadBytes:  util.GetIntEnvOr("MAX_UPLOAD_BYTES", 20<<20),

		SearchEnabled: util.GetBoolEnv("SEARCH_ENABLED"),
		SearchPath:    util.GetEnvOr("SEARCH_PATH", "./data/voice.bleve"),

		GeoIPDB:        util.GetEnv("GEOIP_DB"),
		DefaultLang:    util.GetEnvOr("DEFAULT_LANG", "ko"),
		DebugEnabled:   util.GetBoolEnv("DEBUG_ROUTES"),
		AdminAPISecret: util.GetEnv("ADMIN_API_SECRET"),
	}
	if len(cfg.SpeechAltLanguages) == 0 {
		cfg.SpeechAltLanguages = []string{"en-US"}
	}
	if cfg.DSN == "" && cfg.DBHost != "" {
		cfg.DSN = util.BuildDSN(cfg.DBDriver, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPassword, cfg.DBSSLMode)
	}
	GlobalConfig = cfg
	return nil
}
