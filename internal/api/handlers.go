package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"voice-story-go/internal/config"
	"voice-story-go/internal/logger"
	"voice-story-go/internal/pipeline"
	"voice-story-go/internal/store"
	"voice-story-go/internal/story"
)

// Runner is what the handlers need from the orchestrator.
type Runner interface {
	Run(ctx context.Context, in *story.MediaInput, opts pipeline.Options) *story.PipelineState
}

type Handlers struct {
	runner Runner
	store  *store.Store
	cfg    config.Config
	hub    *Hub
	log    *logger.Logger
}

func NewHandlers(runner Runner, st *store.Store, cfg config.Config) *Handlers {
	return &Handlers{
		runner: runner,
		store:  st,
		cfg:    cfg,
		hub:    NewHub(),
		log:    logger.New(),
	}
}

func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/process", h.ProcessHandler).Methods(http.MethodPost)
	r.HandleFunc("/results", h.ListResultsHandler).Methods(http.MethodGet)
	r.HandleFunc("/results/{id}", h.GetResultHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws/progress", h.hub.ServeWS)
	return r
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

// ProcessHandler accepts a multipart audio upload, runs the pipeline
// synchronously, persists the terminal result, and returns it. A failed run
// is still a 200: the result carries run_status and the stage log.
func (h *Handlers) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "process")
	reqLog.Info("process request received")

	// Room for multipart framing on top of the payload limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		reqLog.WithError(err).Warn("bad multipart form")
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		reqLog.Warn("missing audio file field")
		http.Error(w, "audio file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		reqLog.WithError(err).Error("failed to read upload")
		http.Error(w, "failed to read audio file", http.StatusInternalServerError)
		return
	}

	in := story.NewMediaInput(data, header.Filename, header.Header.Get("Content-Type"))
	opts := h.optionsFromForm(r)
	opts.Events = func(sessionID string, ev story.StageEvent) {
		h.hub.Broadcast(ProgressMessage{
			Type:       "stage_update",
			SessionID:  sessionID,
			Stage:      string(ev.Stage),
			Status:     string(ev.Status),
			DurationMS: ev.DurationMS,
			Error:      ev.Error,
		})
	}

	state := h.runner.Run(r.Context(), in, opts)
	result := state.Result()
	if err := h.store.Put(result); err != nil {
		reqLog.WithError(err).Error("failed to persist result")
	}
	reqLog.WithField("session_id", result.SessionID).
		WithField("run_status", string(result.RunStatus)).
		Info("pipeline finished")

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetResultHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "results")
	id := mux.Vars(r)["id"]

	res, err := h.store.Get(id)
	if err == store.ErrNotFound {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		reqLog.WithError(err).Error("store lookup failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListResultsHandler returns every stored result, e.g. for building a batch
// report from past runs.
func (h *Handlers) ListResultsHandler(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "results")

	results, err := h.store.List()
	if err != nil {
		reqLog.WithError(err).Error("store list failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []*story.PipelineResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handlers) optionsFromForm(r *http.Request) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.LanguageHint = r.FormValue("language")
	if opts.LanguageHint == "" {
		opts.LanguageHint = h.cfg.DefaultLanguage
	}
	opts.MaxDurationSeconds = h.cfg.MaxDurationSeconds
	if v := r.FormValue("max_duration_seconds"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			opts.MaxDurationSeconds = f
		}
	}
	if v := r.FormValue("enable_structuring"); v != "" {
		opts.EnableStructuring = v != "false" && v != "0"
	}
	if v := r.FormValue("enable_tagging"); v != "" {
		opts.EnableTagging = v != "false" && v != "0"
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
