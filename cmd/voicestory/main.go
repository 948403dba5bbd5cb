package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"voice-story-go/internal/audio"
	"voice-story-go/internal/config"
	"voice-story-go/internal/llm"
	"voice-story-go/internal/logger"
	"voice-story-go/internal/pipeline"
	"voice-story-go/internal/report"
	"voice-story-go/internal/stages"
	"voice-story-go/internal/story"
	"voice-story-go/internal/transcribe"
)

var (
	flagLanguage    string
	flagMaxDuration float64
	flagNoStructure bool
	flagNoTags      bool
	flagReportPath  string
	flagJSON        bool
)

func main() {
	root := &cobra.Command{
		Use:   "voicestory",
		Short: "Turn voice recordings into structured stories",
	}

	processCmd := &cobra.Command{
		Use:   "process <audio-file-or-dir>...",
		Short: "Run the processing pipeline over recordings or directories of recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runProcess,
	}
	processCmd.Flags().StringVar(&flagLanguage, "language", "", "language hint for transcription")
	processCmd.Flags().Float64Var(&flagMaxDuration, "max-duration", 0, "abort recordings longer than this many seconds")
	processCmd.Flags().BoolVar(&flagNoStructure, "no-structure", false, "skip the organize stage")
	processCmd.Flags().BoolVar(&flagNoTags, "no-tags", false, "skip the tag stage")
	processCmd.Flags().StringVar(&flagReportPath, "report", "", "write an xlsx batch report to this path")
	processCmd.Flags().BoolVar(&flagJSON, "json", false, "print full results as JSON")
	root.AddCommand(processCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	log := logger.New()
	cfg := config.Load()

	orc := buildOrchestrator(cfg)
	opts := pipeline.DefaultOptions()
	opts.LanguageHint = flagLanguage
	if opts.LanguageHint == "" {
		opts.LanguageHint = cfg.DefaultLanguage
	}
	opts.MaxDurationSeconds = flagMaxDuration
	if opts.MaxDurationSeconds == 0 {
		opts.MaxDurationSeconds = cfg.MaxDurationSeconds
	}
	opts.EnableStructuring = !flagNoStructure
	opts.EnableTagging = !flagNoTags

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}

	var results []*story.PipelineResult
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		in := story.NewMediaInput(data, filepath.Base(path), mimeType)

		log.WithField("file", path).Info("processing")
		state := orc.Run(context.Background(), in, opts)
		res := state.Result()
		results = append(results, res)

		if flagJSON {
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
		} else {
			printResult(res)
		}
	}

	if flagReportPath != "" {
		if err := report.Write(flagReportPath, results); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.WithField("path", flagReportPath).Info("report written")
	}
	return nil
}

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".ogg": true,
	".oga": true, ".m4a": true, ".mp4": true,
}

// expandArgs replaces directory arguments with the audio files they contain
// (non-recursive) and keeps file arguments as-is.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if audioExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no audio files found")
	}
	return paths, nil
}

func printResult(res *story.PipelineResult) {
	fmt.Printf("\n%s  [%s]\n", res.Filename, res.RunStatus)
	if res.Title != "" {
		fmt.Printf("Title:   %s\n", res.Title)
	}
	if res.Summary != "" {
		fmt.Printf("Summary: %s\n", res.Summary)
	}
	if len(res.Tags) > 0 {
		names := make([]string, 0, len(res.Tags))
		for _, t := range res.Tags {
			names = append(names, t.Name)
		}
		fmt.Printf("Tags:    %s\n", strings.Join(names, ", "))
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Stage", "Status", "Duration (ms)", "Error"})
	for _, ev := range res.StageLog {
		tw.AppendRow(table.Row{string(ev.Stage), string(ev.Status), ev.DurationMS, ev.Error})
	}
	tw.Render()
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
