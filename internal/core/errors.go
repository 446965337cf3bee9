package core

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error surfaced by the copilot wraps exactly one of
// these so callers can branch with errors.Is.
var (
	// ErrTransport marks a generation call that never produced a usable
	// response: network failure, quota, auth, or a non-2xx status.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse marks model text that could not be parsed as the
	// expected JSON document.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoAudioData marks a speech call that succeeded but carried no audio.
	ErrNoAudioData = errors.New("no audio data")

	// ErrAudioDecode marks a PCM payload that could not be decoded.
	ErrAudioDecode = errors.New("audio decode error")

	// ErrInvalidPlan marks a decoded plan that failed validation.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Error carries a failure kind plus diagnostic detail. Message and Cause are
// meant for logs; use UserMessage for anything shown to a person.
type Error struct {
	Kind       error
	Op         string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := "error"
	if e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Transport builds an ErrTransport failure.
func Transport(op string, statusCode int, retryable bool, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:       ErrTransport,
		Op:         op,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// Malformed builds an ErrMalformedResponse failure.
func Malformed(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: ErrMalformedResponse, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NoAudio builds an ErrNoAudioData failure.
func NoAudio(op string) *Error {
	return &Error{Kind: ErrNoAudioData, Op: op, Message: "speech response carried no audio payload"}
}

// AudioDecode builds an ErrAudioDecode failure.
func AudioDecode(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: ErrAudioDecode, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidPlan builds an ErrInvalidPlan failure.
func InvalidPlan(op string, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidPlan, Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err is a transport failure the server marked
// as transient (rate limit, 5xx, connection reset).
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// UserMessage maps err to the single generic message shown for its kind.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoAudioData):
		return "The speech request succeeded but returned no audio."
	case errors.Is(err, ErrAudioDecode):
		return "Failed to decode the generated audio."
	case errors.Is(err, ErrMalformedResponse):
		return "The model returned a response that could not be read."
	case errors.Is(err, ErrInvalidPlan):
		return "The generated conversion plan failed validation."
	case errors.Is(err, ErrTransport):
		return "Could not reach the generation service."
	default:
		return "Something went wrong."
	}
}
