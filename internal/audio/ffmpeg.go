package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"voice-story-go/internal/story"
)

// targetSampleRate matches what speech models expect.
const targetSampleRate = 16000

// CommandRunner executes one external command and returns combined stderr
// output. Injectable so tests can simulate a missing or failing tool.
type CommandRunner func(ctx context.Context, name string, args ...string) (stderr string, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return errBuf.String(), err
}

// FFmpegBackend shells out to ffmpeg to produce mono 16 kHz WAV. It is the
// primary backend because ffmpeg handles every container we accept.
type FFmpegBackend struct {
	Path   string
	Runner CommandRunner
}

func NewFFmpegBackend(path string) *FFmpegBackend {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegBackend{Path: path, Runner: execRunner}
}

func (b *FFmpegBackend) Name() story.DecodeBackend { return story.BackendPrimary }

func (b *FFmpegBackend) Supports(in *story.MediaInput) bool { return true }

func (b *FFmpegBackend) Decode(ctx context.Context, in *story.MediaInput, workDir string) (*story.NormalizedAudio, error) {
	if _, err := exec.LookPath(b.Path); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrToolUnavailable, b.Path)
	}

	inPath := filepath.Join(workDir, "in_"+in.Filename)
	if err := os.WriteFile(inPath, in.Data, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch input: %w", err)
	}
	outPath := filepath.Join(workDir, "decoded_16k.wav")

	stderr, err := b.Runner(ctx, b.Path,
		"-y", "-i", inPath,
		"-ac", "1", "-ar", fmt.Sprintf("%d", targetSampleRate),
		"-f", "wav",
		outPath,
	)
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// ffmpeg ran but rejected the stream: a data error, not a
			// tool-invocation error.
			return nil, fmt.Errorf("ffmpeg rejected input: %v (%s)", err, lastLine(stderr))
		}
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("open decoded wav: %w", err)
	}
	defer f.Close()

	samples, rate, err := samplesFromWAV(f)
	if err != nil {
		return nil, fmt.Errorf("read decoded wav: %w", err)
	}

	return &story.NormalizedAudio{
		Samples:    samples,
		SampleRate: rate,
		Duration:   durationSeconds(len(samples), rate),
		Backend:    story.BackendPrimary,
		TempPath:   outPath,
	}, nil
}

func durationSeconds(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) / float64(rate)
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(lines[len(lines)-1])
}
