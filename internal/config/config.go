package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Widget     WidgetConfig     `mapstructure:"widget"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Image      ImageConfig      `mapstructure:"image"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type WidgetConfig struct {
	StorageKey       string `mapstructure:"storage_key"`
	Persist          bool   `mapstructure:"persist"`
	InputPlaceholder string `mapstructure:"input_placeholder"`
	TTSDefaultOn     bool   `mapstructure:"tts_default_on"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	File   FileStorage  `mapstructure:"file"`
	Pebble PebbleConfig `mapstructure:"pebble"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type FileStorage struct {
	Path string `mapstructure:"path"`
}

type PebbleConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SpeechConfig struct {
	Output SpeechOutputConfig `mapstructure:"output"`
	Input  SpeechInputConfig  `mapstructure:"input"`
}

type SpeechOutputConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Lang          string   `mapstructure:"lang"`
	VoiceName     string   `mapstructure:"voice_name"`
	VoiceIncludes []string `mapstructure:"voice_includes"`
	Pitch         float64  `mapstructure:"pitch"`
	Rate          float64  `mapstructure:"rate"`
	Volume        float64  `mapstructure:"volume"`
	MaxChunkLen   int      `mapstructure:"max_chunk_len"`
}

type SpeechInputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Lang    string `mapstructure:"lang"`
}

type ImageConfig struct {
	MaxSide         int     `mapstructure:"max_side"`
	MaxBytes        int     `mapstructure:"max_bytes"`
	PreferredFormat string  `mapstructure:"preferred_format"`
	Quality         float64 `mapstructure:"quality"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.SetEnvPrefix("")
	viper.BindEnv("server.addr", "SERVER_ADDR")
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.redis.addr", "REDIS_HOST", "REDIS_PORT")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := viper.GetString("REDIS_HOST"); redisHost != "" {
		redisPort := viper.GetString("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Widget.StorageKey == "" {
		cfg.Widget.StorageKey = "messenger"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
}

func validateConfig(cfg *Config) error {
	cfg.Storage.Type = strings.ToLower(cfg.Storage.Type)
	switch cfg.Storage.Type {
	case "memory", "file", "pebble", "redis":
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "redis" && cfg.Storage.Redis.Addr == "" {
		return fmt.Errorf("redis storage requires an address")
	}
	if cfg.Storage.Type == "pebble" && cfg.Storage.Pebble.Path == "" {
		return fmt.Errorf("pebble storage requires a path")
	}
	if cfg.Storage.Type == "file" && cfg.Storage.File.Path == "" {
		return fmt.Errorf("file storage requires a path")
	}
	return nil
}
