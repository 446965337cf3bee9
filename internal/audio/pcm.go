// Package audio decodes the raw PCM returned by the speech endpoint and
// hands it to a playback device.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"evai/internal/core"
)

// SampleRate is the fixed rate of generated speech, in Hz.
const SampleRate = 24000

// DecodedAudio is de-interleaved float PCM ready for playback.
// Samples[c][i] is frame i of channel c, in [-1, 1).
type DecodedAudio struct {
	SampleRate   int
	ChannelCount int
	Samples      [][]float32
}

// Frames returns the number of frames per channel.
func (a *DecodedAudio) Frames() int {
	if a == nil || len(a.Samples) == 0 {
		return 0
	}
	return len(a.Samples[0])
}

// Duration returns the playback length.
func (a *DecodedAudio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Frames()) * time.Second / time.Duration(a.SampleRate)
}

// DecodeBase64PCM decodes base64 signed 16-bit little-endian interleaved PCM
// at SampleRate. ASCII whitespace inside the payload is ignored and missing
// padding is accepted.
func DecodeBase64PCM(b64 string, channels int) (*DecodedAudio, error) {
	raw, err := decodeBase64(b64)
	if err != nil {
		return nil, core.AudioDecode("audio.decode", err, "payload is not valid base64")
	}
	return DecodePCM(raw, SampleRate, channels)
}

// DecodePCM de-interleaves raw signed 16-bit little-endian PCM.
// sample[c][i] = int16(raw[i*channels+c]) / 32768, so 32767 maps just below
// 1.0 and -32768 maps to exactly -1.0.
func DecodePCM(raw []byte, sampleRate, channels int) (*DecodedAudio, error) {
	const op = "audio.decode"

	if channels < 1 {
		return nil, core.AudioDecode(op, nil, "channel count must be at least 1, got %d", channels)
	}
	if len(raw)%2 != 0 {
		return nil, core.AudioDecode(op, nil, "odd byte length %d is not whole 16-bit samples", len(raw))
	}
	sampleCount := len(raw) / 2
	if sampleCount%channels != 0 {
		return nil, core.AudioDecode(op, nil, "%d samples do not divide into %d channels", sampleCount, channels)
	}
	frameCount := sampleCount / channels
	if frameCount == 0 {
		return nil, core.AudioDecode(op, nil, "no audio frames")
	}

	samples := make([][]float32, channels)
	for c := range samples {
		samples[c] = make([]float32, frameCount)
	}
	for c := 0; c < channels; c++ {
		out := samples[c]
		for i := 0; i < frameCount; i++ {
			off := (i*channels + c) * 2
			v := int16(binary.LittleEndian.Uint16(raw[off:]))
			out[i] = float32(v) / 32768.0
		}
	}

	return &DecodedAudio{SampleRate: sampleRate, ChannelCount: channels, Samples: samples}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
