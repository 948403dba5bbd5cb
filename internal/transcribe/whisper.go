package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voice-story-go/internal/story"
)

// WhisperConfig points the client at an OpenAI-compatible transcription
// endpoint (cloud API or a local whisper server, interchangeable).
type WhisperConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// WhisperClient posts the normalized audio as a multipart WAV upload.
type WhisperClient struct {
	cfg        WhisperConfig
	httpClient *http.Client
}

func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &WhisperClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, na *story.NormalizedAudio, languageHint string) (*story.Transcript, error) {
	if c.cfg.URL == "" {
		return nil, fmt.Errorf("WHISPER_URL not set")
	}

	wavPath := na.TempPath
	if wavPath == "" {
		// Fallback-decoded audio lives only in memory; spill it to a
		// scratch WAV for the upload.
		p, cleanup, err := writeScratchWAV(na)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		wavPath = p
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("copy wav: %w", err)
	}
	f.Close()
	_ = w.WriteField("model", c.cfg.Model)
	_ = w.WriteField("response_format", "verbose_json")
	if languageHint != "" {
		_ = w.WriteField("language", languageHint)
	}
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper error %d: %s", resp.StatusCode, raw)
	}

	var parsed whisperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	tr := &story.Transcript{
		Text:     parsed.Text,
		Language: parsed.Language,
	}
	if tr.Language == "" {
		tr.Language = languageHint
	}
	for _, seg := range parsed.Segments {
		tr.Segments = append(tr.Segments, story.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return tr, nil
}

// writeScratchWAV encodes mono float samples to a 16-bit PCM temp file.
func writeScratchWAV(na *story.NormalizedAudio) (string, func(), error) {
	f, err := os.CreateTemp("", "voicestory_*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("scratch wav: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	enc := wav.NewEncoder(f, na.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: na.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(na.Samples)),
	}
	for i, s := range na.Samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		buf.Data[i] = v
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
