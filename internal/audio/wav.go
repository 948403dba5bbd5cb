package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// samplesFromWAV reads a whole WAV stream into normalized mono float64
// samples, averaging channels when the source is not already mono.
func samplesFromWAV(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav stream")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav pcm: %w", err)
	}

	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / ch
	samples := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for j := 0; j < ch; j++ {
			sum += float64(buf.Data[i*ch+j])
		}
		samples = append(samples, sum/float64(ch)/scale)
	}
	return samples, buf.Format.SampleRate, nil
}
