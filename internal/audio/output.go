package audio

import (
	"context"
	"fmt"
	"sync"

	"evai/internal/logging"
)

// Player starts playback of decoded audio. Implementations need not be safe
// for concurrent use; Output serializes calls.
type Player interface {
	Play(ctx context.Context, a *DecodedAudio) error
}

// Output owns the one playback context of a session. The Player is created
// lazily on first use and reused afterwards; Play calls are serialized.
type Output struct {
	newPlayer func() (Player, error)

	once    sync.Once
	player  Player
	initErr error

	mu sync.Mutex
}

// NewOutput returns an Output that builds its Player with newPlayer on the
// first Play.
func NewOutput(newPlayer func() (Player, error)) *Output {
	return &Output{newPlayer: newPlayer}
}

// Play hands a to the shared Player. A Player that failed to initialize
// fails every Play with the same error.
func (o *Output) Play(ctx context.Context, a *DecodedAudio) error {
	if a == nil {
		return fmt.Errorf("audio output: nothing to play")
	}

	o.once.Do(func() {
		logging.AudioDebug("creating audio output context")
		o.player, o.initErr = o.newPlayer()
	})
	if o.initErr != nil {
		return fmt.Errorf("audio output unavailable: %w", o.initErr)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	logging.AudioDebug("playing %d frames x %d channels (%s)", a.Frames(), a.ChannelCount, a.Duration())
	return o.player.Play(ctx, a)
}
