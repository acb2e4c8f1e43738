// Package audio converts between browser sample buffers and the 16-bit PCM
// framing used by the speech endpoints, and schedules gapless playback of
// streamed chunks.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"mime"
	"strconv"
	"time"
)

const (
	// InputSampleRate is the microphone rate expected upstream.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of synthesized speech.
	OutputSampleRate = 24000

	bytesPerSample = 2
)

// PCMMimeType returns the MIME type announcing raw 16-bit PCM at rate.
func PCMMimeType(rate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(rate)
}

// ParseRate extracts the rate parameter from a PCM MIME type such as
// "audio/L16;codec=pcm;rate=24000".
func ParseRate(mimeType string) (int, bool) {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// Float32ToPCM16 converts samples in [-1, 1] to little-endian signed 16-bit
// PCM. Out-of-range samples are clamped.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		v := float64(s) * 32768
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(int16(v)))
	}
	return out
}

// PCM16ToFloat32 decodes interleaved little-endian 16-bit PCM into one sample
// slice per channel, scaled to [-1, 1).
func PCM16ToFloat32(data []byte, channels int) ([][]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	frameBytes := bytesPerSample * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm payload of %d bytes is not a whole number of %d-channel frames", len(data), channels)
	}

	frames := len(data) / frameBytes
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bytesPerSample
			sample := int16(binary.LittleEndian.Uint16(data[off:]))
			out[ch][i] = float32(sample) / 32768
		}
	}
	return out, nil
}

// DecodeFloat32LE reads raw little-endian float32 samples.
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("float32 payload of %d bytes is not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// Duration is the playback length of a 16-bit PCM payload.
func Duration(byteLen, rate, channels int) time.Duration {
	if rate <= 0 || channels <= 0 {
		return 0
	}
	frames := byteLen / (bytesPerSample * channels)
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
