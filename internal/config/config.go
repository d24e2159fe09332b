package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the studioshots server.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Media    MediaConfig
	AI       AIConfig
	Throttle ThrottleConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	CORSOrigins        []string
	RateLimitPerMinute int
}

// RedisConfig is optional; an empty URL disables the status mirror and
// HTTP rate limiting.
type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	Root string
}

type MediaConfig struct {
	YtDlpPath       string
	FFmpegPath      string
	FFprobePath     string
	MaxFrames       int
	DownloadTimeout time.Duration
}

type AIConfig struct {
	VisionProvider    string
	SynthesisProvider string
	RequestTimeout    time.Duration
	Gemini            GeminiConfig
	HuggingFace       HuggingFaceConfig
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

type HuggingFaceConfig struct {
	APIToken string
	BaseURL  string
	Model    string
}

// ThrottleConfig drives the per-endpoint call spacing and retry policy.
type ThrottleConfig struct {
	VisionDelay    time.Duration
	SynthesisDelay time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
}

var (
	validVisionProviders    = map[string]bool{"gemini": true, "mock": true}
	validSynthesisProviders = map[string]bool{"huggingface": true, "gemini": true, "mock": true}
)

// Load reads configuration from environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("STUDIOSHOTS_PORT", 8000),
			Env:                envString("STUDIOSHOTS_ENV", "development"),
			CORSOrigins:        envList("STUDIOSHOTS_CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Root: envString("STORAGE_ROOT", "temp"),
		},
		Media: MediaConfig{
			YtDlpPath:       envString("YTDLP_PATH", "yt-dlp"),
			FFmpegPath:      envString("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:     envString("FFPROBE_PATH", "ffprobe"),
			MaxFrames:       envInt("MAX_FRAMES", 120),
			DownloadTimeout: envDuration("DOWNLOAD_TIMEOUT", 10*time.Minute),
		},
		AI: AIConfig{
			VisionProvider:    envString("VISION_PROVIDER", "gemini"),
			SynthesisProvider: envString("SYNTHESIS_PROVIDER", "huggingface"),
			RequestTimeout:    envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 120*time.Second),
			Gemini: GeminiConfig{
				APIKey:     os.Getenv("GEMINI_API_KEY"),
				BaseURL:    envString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
				Model:      envString("GEMINI_MODEL", "gemini-2.5-flash"),
				ImageModel: envString("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			},
			HuggingFace: HuggingFaceConfig{
				APIToken: os.Getenv("HUGGINGFACE_API_TOKEN"),
				BaseURL:  envString("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/hf-inference"),
				Model:    envString("HUGGINGFACE_MODEL", "black-forest-labs/FLUX.1-Kontext-dev"),
			},
		},
		Throttle: ThrottleConfig{
			VisionDelay:    envDuration("VISION_THROTTLE_DELAY", 2500*time.Millisecond),
			SynthesisDelay: envDuration("SYNTHESIS_THROTTLE_DELAY", 2*time.Second),
			MaxAttempts:    envInt("RETRY_MAX_ATTEMPTS", 5),
			BaseDelay:      envDuration("RETRY_BASE_DELAY", 3*time.Second),
			MaxDelay:       envDuration("RETRY_MAX_DELAY", 60*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("STUDIOSHOTS_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Storage.Root == "" {
		return fmt.Errorf("STORAGE_ROOT must not be empty")
	}

	if c.Media.MaxFrames <= 0 {
		return fmt.Errorf("MAX_FRAMES must be positive, got %d", c.Media.MaxFrames)
	}

	if !validVisionProviders[c.AI.VisionProvider] {
		return fmt.Errorf("VISION_PROVIDER must be one of gemini, mock; got %q", c.AI.VisionProvider)
	}
	if !validSynthesisProviders[c.AI.SynthesisProvider] {
		return fmt.Errorf("SYNTHESIS_PROVIDER must be one of huggingface, gemini, mock; got %q", c.AI.SynthesisProvider)
	}

	usesGemini := c.AI.VisionProvider == "gemini" || c.AI.SynthesisProvider == "gemini"
	if usesGemini && c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when a gemini provider is selected")
	}
	if c.AI.SynthesisProvider == "huggingface" && c.AI.HuggingFace.APIToken == "" {
		return fmt.Errorf("HUGGINGFACE_API_TOKEN is required when SYNTHESIS_PROVIDER is huggingface")
	}

	if c.Throttle.MaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.Throttle.MaxAttempts)
	}
	if c.Throttle.BaseDelay > c.Throttle.MaxDelay {
		return fmt.Errorf("RETRY_BASE_DELAY (%s) must not exceed RETRY_MAX_DELAY (%s)", c.Throttle.BaseDelay, c.Throttle.MaxDelay)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
