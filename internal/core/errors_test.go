package core

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	err := Transport("gemini.plan", 503, true, io.ErrUnexpectedEOF, "status %d", 503)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "gemini.plan: transport error: status 503: unexpected EOF", err.Error())
}

func TestErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("generate plan: %w", Malformed("plan.decode", nil, "not json"))

	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, IsRetryable(err))

	var typed *Error
	assert.True(t, errors.As(err, &typed))
	assert.Equal(t, "plan.decode", typed.Op)
}

func TestUserMessagePerKind(t *testing.T) {
	cases := map[error]string{
		Transport("op", 0, false, nil, "x"):  "Could not reach the generation service.",
		Malformed("op", nil, "x"):            "The model returned a response that could not be read.",
		NoAudio("op"):                        "The speech request succeeded but returned no audio.",
		AudioDecode("op", nil, "x"):          "Failed to decode the generated audio.",
		InvalidPlan("op", "x"):               "The generated conversion plan failed validation.",
		errors.New("something else"):         "Something went wrong.",
	}
	for err, want := range cases {
		assert.Equal(t, want, UserMessage(err), err.Error())
	}
	assert.Empty(t, UserMessage(nil))
}

func TestNoAudioIsNotTransport(t *testing.T) {
	err := NoAudio("gemini.speak")
	assert.ErrorIs(t, err, ErrNoAudioData)
	assert.NotErrorIs(t, err, ErrTransport)
}
