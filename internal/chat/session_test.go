package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"evai/internal/grounding"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSend_TwoPhaseOrder(t *testing.T) {
	for _, delay := range []time.Duration{0, 20 * time.Millisecond} {
		t.Run(delay.String(), func(t *testing.T) {
			var seen []Message
			s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
				seen = history
				time.Sleep(delay)
				return Reply{Text: "B"}, nil
			}))

			reply, err := s.Send(context.Background(), "A")
			require.NoError(t, err)
			assert.Equal(t, "B", reply.Text())

			assert.Empty(t, seen, "sender sees the history before the new turn")
			assert.Equal(t, []Message{
				{Role: RoleUser, Parts: []Part{{Text: "A"}}},
				{Role: RoleModel, Parts: []Part{{Text: "B"}}},
			}, s.History())
		})
	}
}

func TestSend_UserTurnVisibleWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		close(entered)
		<-release
		return Reply{Text: "later"}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "hello")
		done <- err
	}()

	<-entered
	h := s.History()
	require.Len(t, h, 1)
	assert.Equal(t, RoleUser, h[0].Role)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, s.Len())
}

func TestSend_FailureKeepsUserTurn(t *testing.T) {
	boom := errors.New("quota exceeded")
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		return Reply{}, boom
	}))

	_, err := s.Send(context.Background(), "A")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Message{{Role: RoleUser, Parts: []Part{{Text: "A"}}}}, s.History())
}

func TestSend_SenderSeesPriorTurns(t *testing.T) {
	var seen [][]Message
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		seen = append(seen, history)
		return Reply{Text: "re: " + text}, nil
	}))

	_, err := s.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "two")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0])
	require.Len(t, seen[1], 2)
	assert.Equal(t, "one", seen[1][0].Text())
	assert.Equal(t, "re: one", seen[1][1].Text())
}

func TestSend_AttachesNormalizedCitations(t *testing.T) {
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		return Reply{
			Text:            "Try this shop.",
			GroundingChunks: json.RawMessage(`[{"maps": {"uri": "https://maps/1", "title": "EV Shop"}}, {"other": true}]`),
		}, nil
	}))

	reply, err := s.Send(context.Background(), "Where can I get it done?")
	require.NoError(t, err)
	assert.Equal(t, []grounding.Citation{{URI: "https://maps/1", Title: "EV Shop"}}, reply.Citations)
	assert.Nil(t, s.History()[0].Citations)
}

func TestSend_EmptyMessage(t *testing.T) {
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		t.Fatal("sender must not be called")
		return Reply{}, nil
	}))

	_, err := s.Send(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, s.Len())
}

func TestSend_ConcurrentSendsAppendEveryTurn(t *testing.T) {
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		time.Sleep(time.Millisecond)
		return Reply{Text: "re: " + text}, nil
	}))

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Send(context.Background(), fmt.Sprintf("q%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	h := s.History()
	require.Len(t, h, 2*n)

	// Every reply lands after its own question.
	asked := map[string]int{}
	for i, m := range h {
		switch m.Role {
		case RoleUser:
			asked[m.Text()] = i
		case RoleModel:
			q := m.Text()[len("re: "):]
			pos, ok := asked[q]
			require.True(t, ok, "reply %q before its question", m.Text())
			assert.Less(t, pos, i)
		}
	}
	assert.Len(t, asked, n)
}

func TestReset(t *testing.T) {
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		return Reply{Text: "ok"}, nil
	}))
	_, err := s.Send(context.Background(), "A")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.History())
}

func TestReset_DropsInFlightReply(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		close(entered)
		<-release
		return Reply{Text: "stale"}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "A")
		done <- err
	}()
	<-entered
	s.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrReset)
	assert.Zero(t, s.Len())
}

func TestHistoryIsACopy(t *testing.T) {
	s := NewSession(SenderFunc(func(ctx context.Context, history []Message, text string) (Reply, error) {
		return Reply{Text: "B"}, nil
	}))
	_, err := s.Send(context.Background(), "A")
	require.NoError(t, err)

	h := s.History()
	h[0] = Message{Role: RoleModel}

	assert.Equal(t, RoleUser, s.History()[0].Role)
	assert.NotEmpty(t, s.ID)
}
