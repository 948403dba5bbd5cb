package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"voice-story-go/internal/api"
	"voice-story-go/internal/audio"
	"voice-story-go/internal/config"
	"voice-story-go/internal/llm"
	"voice-story-go/internal/logger"
	"voice-story-go/internal/pipeline"
	"voice-story-go/internal/stages"
	"voice-story-go/internal/store"
	"voice-story-go/internal/transcribe"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-story-go").Info("starting service")

	cfg := config.Load()

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to open result store")
	}
	defer st.Close()

	orc := buildOrchestrator(cfg)
	handlers := api.NewHandlers(orc, st, cfg)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func buildOrchestrator(cfg config.Config) *pipeline.Orchestrator {
	decoder := audio.NewDecoder(
		audio.NewFFmpegBackend(cfg.FFmpegPath),
		audio.NewPureGoBackend(),
		cfg.MaxUploadBytes,
	)
	transcriber := transcribe.NewTranscriber(
		transcribe.NewWhisperClient(transcribe.WhisperConfig{
			URL:     cfg.WhisperURL,
			Model:   cfg.WhisperModel,
			Timeout: cfg.WhisperTimeout,
		}),
		cfg.MinAudioSeconds,
	)
	model := llm.NewClient(llm.Config{
		GatewayURL: cfg.LLMGatewayURL,
		APIKey:     cfg.LLMAPIKey,
		Model:      cfg.LLMModel,
		Timeout:    cfg.LLMTimeout,
	})
	return pipeline.NewOrchestrator(
		decoder,
		transcriber,
		stages.NewCleaner(model),
		stages.NewOrganizer(model),
		stages.NewTagger(model),
		cfg.TempDir,
	)
}
