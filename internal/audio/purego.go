package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"voice-story-go/internal/story"
)

// PureGoBackend decodes entirely in-process. It covers the formats with
// mature pure-Go decoders and reports ErrUnsupportedFormat for the rest, so
// the decoder can tell "fallback cannot help" from "fallback failed".
type PureGoBackend struct{}

func NewPureGoBackend() *PureGoBackend { return &PureGoBackend{} }

func (b *PureGoBackend) Name() story.DecodeBackend { return story.BackendFallback }

func (b *PureGoBackend) Supports(in *story.MediaInput) bool {
	switch sniffFormat(in) {
	case "wav", "mp3", "flac", "ogg":
		return true
	}
	return false
}

func (b *PureGoBackend) Decode(ctx context.Context, in *story.MediaInput, workDir string) (*story.NormalizedAudio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		samples []float64
		rate    int
		err     error
	)
	switch format := sniffFormat(in); format {
	case "wav":
		samples, rate, err = samplesFromWAV(bytes.NewReader(in.Data))
	case "mp3":
		samples, rate, err = decodeMP3(in.Data)
	case "flac":
		samples, rate, err = decodeFLAC(in.Data)
	case "ogg":
		samples, rate, err = decodeOGG(in.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(in.Filename))
	}
	if err != nil {
		return nil, err
	}

	return &story.NormalizedAudio{
		Samples:    samples,
		SampleRate: rate,
		Duration:   durationSeconds(len(samples), rate),
		Backend:    story.BackendFallback,
	}, nil
}

// sniffFormat prefers magic bytes over the declared extension.
func sniffFormat(in *story.MediaInput) string {
	d := in.Data
	switch {
	case len(d) >= 12 && string(d[:4]) == "RIFF" && string(d[8:12]) == "WAVE":
		return "wav"
	case len(d) >= 4 && string(d[:4]) == "fLaC":
		return "flac"
	case len(d) >= 4 && string(d[:4]) == "OggS":
		return "ogg"
	case len(d) >= 3 && string(d[:3]) == "ID3",
		len(d) >= 2 && d[0] == 0xFF && d[1]&0xE0 == 0xE0:
		return "mp3"
	}
	switch strings.ToLower(filepath.Ext(in.Filename)) {
	case ".wav":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".flac":
		return "flac"
	case ".ogg", ".oga":
		return "ogg"
	}
	return ""
}

// decodeMP3 downmixes go-mp3's fixed 16-bit stereo stream.
func decodeMP3(data []byte) ([]float64, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 read: %w", err)
	}
	samples := make([]float64, 0, len(pcm)/4)
	for i := 0; i+3 < len(pcm); i += 4 {
		l := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		r := int16(uint16(pcm[i+2]) | uint16(pcm[i+3])<<8)
		samples = append(samples, (float64(l)+float64(r))/2/32768)
	}
	return samples, dec.SampleRate(), nil
}

func decodeFLAC(data []byte) ([]float64, int, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("flac parse: %w", err)
	}
	info := stream.Info
	scale := float64(int64(1) << (info.BitsPerSample - 1))

	var samples []float64
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("flac frame: %w", err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			var sum float64
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			samples = append(samples, sum/float64(len(frame.Subframes))/scale)
		}
	}
	return samples, int(info.SampleRate), nil
}

func decodeOGG(data []byte) ([]float64, int, error) {
	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("ogg decode: %w", err)
	}
	ch := format.Channels
	if ch < 1 {
		ch = 1
	}
	samples := make([]float64, 0, len(pcm)/ch)
	for i := 0; i+ch-1 < len(pcm); i += ch {
		var sum float64
		for j := 0; j < ch; j++ {
			sum += float64(pcm[i+j])
		}
		samples = append(samples, sum/float64(ch))
	}
	return samples, format.SampleRate, nil
}
