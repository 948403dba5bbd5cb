package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration read from the environment.
// Mains call godotenv.Load() before Load so a local .env works too.
type Config struct {
	Port string

	MaxUploadBytes     int64
	MaxDurationSeconds float64
	MinAudioSeconds    float64

	FFmpegPath string
	TempDir    string
	DataDir    string

	WhisperURL      string
	WhisperModel    string
	WhisperTimeout  time.Duration
	DefaultLanguage string

	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
}

func Load() Config {
	return Config{
		Port: envOr("PORT", "8080"),

		MaxUploadBytes:     int64(envInt("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		MaxDurationSeconds: envFloat("MAX_DURATION_SECONDS", 1800),
		MinAudioSeconds:    envFloat("MIN_AUDIO_SECONDS", 0.5),

		FFmpegPath: envOr("FFMPEG_PATH", "ffmpeg"),
		TempDir:    envOr("TEMP_DIR", os.TempDir()),
		DataDir:    envOr("DATA_DIR", "./data"),

		WhisperURL:      os.Getenv("WHISPER_URL"),
		WhisperModel:    envOr("WHISPER_MODEL", "whisper-1"),
		WhisperTimeout:  time.Duration(envInt("WHISPER_TIMEOUT_SEC", 60)) * time.Second,
		DefaultLanguage: envOr("DEFAULT_LANGUAGE", ""),

		LLMGatewayURL: os.Getenv("LLM_GATEWAY_URL"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      envOr("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:    time.Duration(envInt("LLM_TIMEOUT_SEC", 25)) * time.Second,
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
