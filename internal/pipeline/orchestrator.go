package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"voice-story-go/internal/logger"
	"voice-story-go/internal/stages"
	"voice-story-go/internal/story"
)

// AudioDecoder is the decode contract the orchestrator consumes; satisfied
// by *audio.Decoder and by test fakes.
type AudioDecoder interface {
	Decode(ctx context.Context, in *story.MediaInput, workDir string) (*story.NormalizedAudio, error)
}

// TranscriptSource is the transcription contract; satisfied by
// *transcribe.Transcriber. The bool reports whether the backend was
// actually invoked (false means the short-audio short-circuit fired).
type TranscriptSource interface {
	Transcribe(ctx context.Context, audio *story.NormalizedAudio, languageHint string) (*story.Transcript, bool, error)
}

// Options configures one run.
type Options struct {
	LanguageHint       string
	MaxDurationSeconds float64
	EnableStructuring  bool
	EnableTagging      bool

	// Events receives one event per stage-status transition, including the
	// running transitions that never enter the outcome log. sessionID lets
	// a shared consumer (e.g. a websocket hub) demultiplex concurrent runs.
	Events func(sessionID string, ev story.StageEvent)
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{EnableStructuring: true, EnableTagging: true}
}

// Orchestrator drives the stage graph
// decode → transcribe → clean → {organize, tag} → finalize.
// Run never returns an error: failure is represented in the returned state
// so callers can always render the event log.
type Orchestrator struct {
	decoder     AudioDecoder
	transcriber TranscriptSource
	cleaner     stages.Stage
	organizer   stages.Stage
	tagger      stages.Stage
	tempRoot    string
	log         *logger.Logger
}

func NewOrchestrator(decoder AudioDecoder, transcriber TranscriptSource, cleaner, organizer, tagger stages.Stage, tempRoot string) *Orchestrator {
	return &Orchestrator{
		decoder:     decoder,
		transcriber: transcriber,
		cleaner:     cleaner,
		organizer:   organizer,
		tagger:      tagger,
		tempRoot:    tempRoot,
		log:         logger.New(),
	}
}

// Run executes one pipeline run over exclusively owned state. Temp audio is
// removed on every exit path.
func (o *Orchestrator) Run(ctx context.Context, in *story.MediaInput, opts Options) *story.PipelineState {
	state := story.NewPipelineState(in)
	state.Run = story.RunRunning
	log := o.log.WithSession(state.SessionID).WithField("filename", in.Filename)
	log.Info("pipeline run started")

	emit := func(ev story.StageEvent) {
		if opts.Events != nil {
			opts.Events(state.SessionID, ev)
		}
	}
	begin := func(stage story.Stage) {
		state.SetStatus(stage, story.StatusRunning)
		emit(story.StageEvent{Stage: stage, Status: story.StatusRunning})
	}
	finish := func(stage story.Stage, status story.StageStatus, started time.Time, err error) {
		ev := state.Record(stage, status, time.Since(started), err)
		emit(ev)
		entry := log.WithField("stage", string(stage)).WithField("status", string(status))
		if err != nil {
			entry = entry.WithField("error", err.Error())
		}
		entry.Info("stage finished")
	}
	skip := func(skipped ...story.Stage) {
		for _, stage := range skipped {
			emit(state.Record(stage, story.StatusSkipped, 0, nil))
		}
	}
	fail := func() *story.PipelineState {
		state.Run = story.RunFailed
		log.Warn("pipeline run failed")
		return state
	}

	workDir, err := os.MkdirTemp(o.tempRoot, "voicestory_run_")
	if err != nil {
		finish(story.StageDecode, story.StatusFailed, time.Now(), fmt.Errorf("create run workdir: %w", err))
		skip(story.StageTranscribe, story.StageClean, story.StageOrganize, story.StageTag)
		return fail()
	}
	defer os.RemoveAll(workDir)

	// decode
	begin(story.StageDecode)
	started := time.Now()
	audio, derr := o.decoder.Decode(ctx, in, workDir)
	if derr != nil {
		finish(story.StageDecode, story.StatusFailed, started, derr)
		skip(story.StageTranscribe, story.StageClean, story.StageOrganize, story.StageTag)
		return fail()
	}
	state.Audio = audio
	finish(story.StageDecode, story.StatusSucceeded, started, nil)

	if opts.MaxDurationSeconds > 0 && audio.Duration > opts.MaxDurationSeconds {
		verr := &story.ValidationError{
			Reason: fmt.Sprintf("audio is %.1fs, limit is %.1fs", audio.Duration, opts.MaxDurationSeconds),
		}
		finish(story.StageTranscribe, story.StatusFailed, time.Now(), verr)
		skip(story.StageClean, story.StageOrganize, story.StageTag)
		return fail()
	}

	if cancelled(ctx) {
		finish(story.StageTranscribe, story.StatusFailed, time.Now(), ctx.Err())
		skip(story.StageClean, story.StageOrganize, story.StageTag)
		return fail()
	}

	// transcribe
	begin(story.StageTranscribe)
	started = time.Now()
	transcript, invoked, terr := o.transcriber.Transcribe(ctx, audio, opts.LanguageHint)
	if terr != nil {
		finish(story.StageTranscribe, story.StatusFailed, started, terr)
		skip(story.StageClean, story.StageOrganize, story.StageTag)
		return fail()
	}
	state.Transcript = transcript
	if invoked {
		finish(story.StageTranscribe, story.StatusSucceeded, started, nil)
	} else {
		finish(story.StageTranscribe, story.StatusSkipped, started, nil)
	}

	// Nothing to transform: unusable audio still completes the run with
	// empty artifacts rather than failing it.
	if strings.TrimSpace(transcript.Text) == "" {
		skip(story.StageClean, story.StageOrganize, story.StageTag)
		state.Run = story.RunCompleted
		log.Info("pipeline run completed with empty transcript")
		return state
	}

	if cancelled(ctx) {
		finish(story.StageClean, story.StatusFailed, time.Now(), ctx.Err())
		skip(story.StageOrganize, story.StageTag)
		return fail()
	}

	// clean (strictly before organize/tag)
	begin(story.StageClean)
	started = time.Now()
	status, serr := o.cleaner.Apply(ctx, state)
	finish(story.StageClean, status, started, serr)
	if !status.OK() {
		skip(story.StageOrganize, story.StageTag)
		return fail()
	}

	if cancelled(ctx) {
		finish(story.StageOrganize, story.StatusFailed, time.Now(), ctx.Err())
		skip(story.StageTag)
		return fail()
	}

	// organize and tag read only CleanedText and run concurrently; both
	// must reach a terminal status before the run finalizes.
	var wg sync.WaitGroup
	runStage := func(stage stages.Stage) {
		defer wg.Done()
		begin(stage.Name())
		t0 := time.Now()
		st, err := stage.Apply(ctx, state)
		finish(stage.Name(), st, t0, err)
	}

	if opts.EnableStructuring {
		wg.Add(1)
		go runStage(o.organizer)
	} else {
		skip(story.StageOrganize)
	}
	if opts.EnableTagging {
		wg.Add(1)
		go runStage(o.tagger)
	} else {
		skip(story.StageTag)
	}
	wg.Wait()

	state.Run = story.RunCompleted
	log.Info("pipeline run completed")
	return state
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
