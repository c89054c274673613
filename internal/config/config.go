package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Completion CompletionConfig
	Image      ImageConfig
	TTS        TTSConfig
}

type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

type HTTPConfig struct {
	Timeout time.Duration
}

type CompletionConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	MaxTokens   int
}

type ImageConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	CacheTTL time.Duration
}

type TTSConfig struct {
	Type      string
	Voice     string
	Rate      float64
	Volume    float64
	CachePath string
}

// Init loads .env, registers defaults and reads the optional config file.
// It must run before Load.
func Init() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}

	viper.SetConfigName("storyteller")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.storyteller")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("storyteller")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Warn("failed to read config file")
		}
	}
}

// SetDefaults registers every known key with its default value.
func SetDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("http.timeout", 60*time.Second)

	viper.SetDefault("completion.provider", "groq")
	viper.SetDefault("completion.model", "")
	viper.SetDefault("completion.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("completion.temperature", 0.7)
	viper.SetDefault("completion.max_tokens", 1000)

	viper.SetDefault("image.enabled", true)
	viper.SetDefault("image.endpoint", "https://api.pexels.com/v1/search")
	viper.SetDefault("image.cache_ttl", time.Hour)
	_ = viper.BindEnv("image.api_key", "PEXELS_API_KEY")

	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "")
	viper.SetDefault("tts.rate", 1.0)
	viper.SetDefault("tts.volume", 1.0)
	viper.SetDefault("tts.cache_path", defaultCacheDir())
}

// Load resolves the configuration from viper.
func Load() *Config {
	provider := strings.ToLower(viper.GetString("completion.provider"))

	return &Config{
		Server: ServerConfig{Addr: viper.GetString("server.addr")},
		Log:    LogConfig{Level: viper.GetString("log.level")},
		HTTP:   HTTPConfig{Timeout: viper.GetDuration("http.timeout")},
		Completion: CompletionConfig{
			Provider:    provider,
			Model:       viper.GetString("completion.model"),
			BaseURL:     viper.GetString("completion.base_url"),
			APIKey:      completionKey(provider),
			Temperature: float32(viper.GetFloat64("completion.temperature")),
			MaxTokens:   viper.GetInt("completion.max_tokens"),
		},
		Image: ImageConfig{
			Enabled:  viper.GetBool("image.enabled"),
			Endpoint: viper.GetString("image.endpoint"),
			APIKey:   viper.GetString("image.api_key"),
			CacheTTL: viper.GetDuration("image.cache_ttl"),
		},
		TTS: TTSConfig{
			Type:      viper.GetString("tts.type"),
			Voice:     viper.GetString("tts.voice"),
			Rate:      viper.GetFloat64("tts.rate"),
			Volume:    viper.GetFloat64("tts.volume"),
			CachePath: viper.GetString("tts.cache_path"),
		},
	}
}

// completionKey returns the credential for the provider. An explicit
// completion.api_key wins over the provider's environment variable.
func completionKey(provider string) string {
	if k := viper.GetString("completion.api_key"); k != "" {
		return k
	}
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("GROQ_API_KEY")
	}
}

// SetupLogging applies the configured level to the global logrus logger.
func SetupLogging(cfg LogConfig) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithError(err).WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func defaultCacheDir() string {
	if cacheDir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cacheDir, "storyteller", "audio")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".storyteller", "cache", "audio")
	}
	return filepath.Join("cache", "audio")
}
