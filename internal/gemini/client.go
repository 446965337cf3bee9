// Package gemini is the generation collaborator: it sends plan, chat and
// speech requests to the Gemini API and returns the raw model output.
// Decoding that output is left to the plan, chat and audio packages.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"evai/internal/chat"
	"evai/internal/core"
)

// Generator is implemented by both transports.
type Generator interface {
	// GeneratePlan asks for a conversion plan constrained by req.Schema.
	GeneratePlan(ctx context.Context, req PlanRequest) (*Response, error)
	// Chat continues a conversation.
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
	// Speak synthesizes speech. A successful call without audio fails with
	// core.ErrNoAudioData.
	Speak(ctx context.Context, req SpeechRequest) (*SpeechResponse, error)
}

// Image is an inline image attachment.
type Image struct {
	Data     []byte
	MIMEType string
}

type PlanRequest struct {
	Prompt            string
	Image             Image
	Schema            *genai.Schema
	Grounding         bool
	ExtendedReasoning bool
}

type ChatRequest struct {
	History   []chat.Message
	Message   string
	Grounding bool
}

type SpeechRequest struct {
	Text string
}

// Response is the model's text plus its grounding chunks as raw JSON.
type Response struct {
	Text            string
	GroundingChunks json.RawMessage
}

// SpeechResponse carries base64 PCM audio.
type SpeechResponse struct {
	AudioBase64 string
	MIMEType    string
}

// Options configures either transport.
type Options struct {
	APIKey  string
	BaseURL string

	PlanModel string
	ChatModel string
	TTSModel  string
	Voice     string

	Timeout        time.Duration
	ThinkingBudget int
	MaxRetries     int
	MinInterval    time.Duration

	// ChatMaps adds the Google Maps tool to grounded chat requests.
	ChatMaps bool

	HTTPClient *http.Client
}

// PlanSystemInstruction is the persona and output contract for plan requests.
const PlanSystemInstruction = `You are EV.AI, an expert automotive electrification copilot.
1. Analyze the user's prompt and the provided image of a vehicle.
2. Generate a comprehensive and structured EV Conversion Plan based on the user's request.
3. The output MUST be a single JSON object that strictly adheres to the provided schema.
4. Ground any safety-critical claims with citations using Google Search.
5. Be realistic and practical in your component suggestions and cost estimations.
6. Refuse any unsafe or impossible requests.`

// SpeechPrefix is prepended to every text-to-speech prompt.
const SpeechPrefix = "Say with a professional and clear tone: "

const (
	opPlan  = "gemini.plan"
	opChat  = "gemini.chat"
	opSpeak = "gemini.speak"
)

func validatePlanRequest(req PlanRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("plan request: prompt is empty")
	}
	if len(req.Image.Data) == 0 {
		return fmt.Errorf("plan request: image is empty")
	}
	if !strings.HasPrefix(req.Image.MIMEType, "image/") {
		return fmt.Errorf("plan request: %q is not an image type", req.Image.MIMEType)
	}
	return nil
}

// classifyStatus maps a non-2xx HTTP status to a transport error.
func classifyStatus(op string, status int, message string) *core.Error {
	message = truncate(strings.TrimSpace(message), 300)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.Transport(op, status, false, nil, "authentication failed (%d): %s", status, message)
	case status == http.StatusTooManyRequests:
		return core.Transport(op, status, true, nil, "rate limit exceeded (429): %s", message)
	case status == http.StatusNotFound:
		return core.Transport(op, status, false, nil, "model or endpoint not found (404): %s", message)
	case status >= 500:
		return core.Transport(op, status, true, nil, "server error (%d): %s", status, message)
	default:
		return core.Transport(op, status, false, nil, "request failed with status %d: %s", status, message)
	}
}

// backoff returns the wait before retry attempt n (1-based).
func backoff(n int) time.Duration {
	d := time.Duration(1<<uint(n-1)) * 500 * time.Millisecond
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
