package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"evai/internal/logging"
)

// WriteWAV encodes a as a 16-bit PCM RIFF/WAVE stream. Samples are
// re-quantized with round(x*32768) clamped to int16, the inverse of DecodePCM.
func WriteWAV(w io.Writer, a *DecodedAudio) error {
	if a == nil || a.ChannelCount < 1 || len(a.Samples) != a.ChannelCount {
		return fmt.Errorf("wav: invalid audio layout")
	}
	frames := a.Frames()
	for _, ch := range a.Samples {
		if len(ch) != frames {
			return fmt.Errorf("wav: channels have unequal lengths")
		}
	}

	const bitsPerSample = 16
	blockAlign := a.ChannelCount * bitsPerSample / 8
	dataSize := frames * blockAlign

	bw := bufio.NewWriter(w)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(a.ChannelCount),
		uint32(a.SampleRate),
		uint32(a.SampleRate * blockAlign),
		uint16(blockAlign),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(dataSize),
	}
	for _, field := range header {
		if err := binary.Write(bw, binary.LittleEndian, field); err != nil {
			return fmt.Errorf("wav: write header: %w", err)
		}
	}

	var buf [2]byte
	for i := 0; i < frames; i++ {
		for c := 0; c < a.ChannelCount; c++ {
			binary.LittleEndian.PutUint16(buf[:], uint16(quantize(a.Samples[c][i])))
			if _, err := bw.Write(buf[:]); err != nil {
				return fmt.Errorf("wav: write samples: %w", err)
			}
		}
	}
	return bw.Flush()
}

func quantize(x float32) int16 {
	v := math.Round(float64(x) * 32768)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// WAVPlayer "plays" audio by writing one WAV file per call into Dir. With
// Launch set it also runs the first available system player on the file and
// blocks until it exits.
type WAVPlayer struct {
	Dir    string
	Launch bool

	mu   sync.Mutex
	last string
}

// NewWAVPlayer creates dir if needed.
func NewWAVPlayer(dir string, launch bool) (*WAVPlayer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &WAVPlayer{Dir: dir, Launch: launch}, nil
}

// Play implements Player.
func (p *WAVPlayer) Play(ctx context.Context, a *DecodedAudio) error {
	path := filepath.Join(p.Dir, uuid.NewString()+".wav")
	if err := WriteWAVFile(path, a); err != nil {
		return err
	}
	p.mu.Lock()
	p.last = path
	p.mu.Unlock()
	logging.Audio("wrote %s (%s)", path, a.Duration())

	if !p.Launch {
		return nil
	}
	cmd, err := playCommand(ctx, path)
	if err != nil {
		logging.AudioError("not launching playback: %v", err)
		return nil
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback of %s failed: %w", path, err)
	}
	return nil
}

// Last returns the path of the most recent file written.
func (p *WAVPlayer) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// WriteWAVFile writes a to path.
func WriteWAVFile(path string, a *DecodedAudio) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteWAV(f, a)
}

func playCommand(ctx context.Context, path string) (*exec.Cmd, error) {
	if _, err := exec.LookPath("afplay"); err == nil {
		return exec.CommandContext(ctx, "afplay", path), nil
	}
	if _, err := exec.LookPath("ffplay"); err == nil {
		return exec.CommandContext(ctx, "ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path), nil
	}
	if _, err := exec.LookPath("aplay"); err == nil {
		return exec.CommandContext(ctx, "aplay", "-q", path), nil
	}
	return nil, fmt.Errorf("no playback binary found (afplay, ffplay or aplay)")
}
