package config_test

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/studioshots/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"GEMINI_API_KEY":        "gm-test-key",
		"HUGGINGFACE_API_TOKEN": "hf-test-token",
		"REDIS_URL":             "",
		"VISION_PROVIDER":       "",
		"SYNTHESIS_PROVIDER":    "",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, "gemini", cfg.AI.VisionProvider)
	assert.Equal(t, "huggingface", cfg.AI.SynthesisProvider)
	assert.Equal(t, "gm-test-key", cfg.AI.Gemini.APIKey)
}

func TestLoad_CustomPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("STUDIOSHOTS_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("STUDIOSHOTS_PORT", "70000")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDIOSHOTS_PORT")
}

func TestLoad_CORSOriginsList(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("STUDIOSHOTS_CORS_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_RedisOptional(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
}

func TestLoad_InvalidRedisURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "localhost:6379")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_InvalidVisionProvider(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("VISION_PROVIDER", "openai")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VISION_PROVIDER")
}

func TestLoad_InvalidSynthesisProvider(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("SYNTHESIS_PROVIDER", "dalle")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNTHESIS_PROVIDER")
}

func TestLoad_GeminiMissingAPIKey(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("GEMINI_API_KEY", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_HuggingFaceMissingToken(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("HUGGINGFACE_API_TOKEN", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HUGGINGFACE_API_TOKEN")
}

func TestLoad_MockProvidersNeedNoKeys(t *testing.T) {
	setEnv(t, map[string]string{
		"GEMINI_API_KEY":        "",
		"HUGGINGFACE_API_TOKEN": "",
		"REDIS_URL":             "",
		"VISION_PROVIDER":       "mock",
		"SYNTHESIS_PROVIDER":    "mock",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.AI.VisionProvider)
	assert.Equal(t, "mock", cfg.AI.SynthesisProvider)
}

func TestLoad_GeminiSynthesisWithoutHuggingFaceToken(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("HUGGINGFACE_API_TOKEN", "")
	t.Setenv("SYNTHESIS_PROVIDER", "gemini")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.AI.SynthesisProvider)
}

func TestLoad_ThrottleDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2500*time.Millisecond, cfg.Throttle.VisionDelay)
	assert.Equal(t, 2*time.Second, cfg.Throttle.SynthesisDelay)
	assert.Equal(t, 5, cfg.Throttle.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Throttle.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Throttle.MaxDelay)
}

func TestLoad_RetryBaseAboveMax(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("RETRY_BASE_DELAY", "2m")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_BASE_DELAY")
}

func TestLoad_MediaDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "yt-dlp", cfg.Media.YtDlpPath)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.Media.FFprobePath)
	assert.Equal(t, 120, cfg.Media.MaxFrames)
	assert.Equal(t, "temp", cfg.Storage.Root)
}

func TestLoad_InvalidMaxFrames(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("MAX_FRAMES", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_FRAMES")
}

func TestLoad_CustomRequestTimeout(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AI_REQUEST_TIMEOUT_SECS", "30")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.AI.RequestTimeout)
}

func TestLoad_UnparseableValuesFallBackToDefaults(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("MAX_FRAMES", "lots")
	t.Setenv("VISION_THROTTLE_DELAY", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Media.MaxFrames)
	assert.Equal(t, 2500*time.Millisecond, cfg.Throttle.VisionDelay)
}
