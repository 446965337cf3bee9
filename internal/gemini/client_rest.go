package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"evai/internal/core"
	"evai/internal/logging"
)

// RESTClient calls generateContent directly over HTTP.
type RESTClient struct {
	opts       Options
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRESTClient creates a REST transport.
func NewRESTClient(opts Options) *RESTClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &RESTClient{
		opts:       opts,
		httpClient: httpClient,
		limiter:    newLimiter(opts.MinInterval),
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// GeneratePlan implements Generator.
func (c *RESTClient) GeneratePlan(ctx context.Context, req PlanRequest) (*Response, error) {
	if err := validatePlanRequest(req); err != nil {
		return nil, err
	}

	body := &restRequest{
		Contents: []restContent{{
			Role: "user",
			Parts: []restPart{
				{Text: req.Prompt},
				{InlineData: &restBlob{MIMEType: req.Image.MIMEType, Data: base64.StdEncoding.EncodeToString(req.Image.Data)}},
			},
		}},
		SystemInstruction: &restContent{Parts: []restPart{{Text: PlanSystemInstruction}}},
		GenerationConfig: &restGenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	if req.ExtendedReasoning && c.opts.ThinkingBudget > 0 {
		body.GenerationConfig.ThinkingConfig = &restThinkingConfig{ThinkingBudget: c.opts.ThinkingBudget}
	}
	if req.Grounding {
		body.Tools = []restTool{{GoogleSearch: &struct{}{}}}
	}

	resp, err := c.generate(ctx, opPlan, c.opts.PlanModel, body)
	if err != nil {
		return nil, err
	}
	return textResponse(opPlan, resp)
}

// Chat implements Generator.
func (c *RESTClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	contents := make([]restContent, 0, len(req.History)+1)
	for _, m := range req.History {
		parts := make([]restPart, len(m.Parts))
		for i, p := range m.Parts {
			parts[i] = restPart{Text: p.Text}
		}
		contents = append(contents, restContent{Role: string(m.Role), Parts: parts})
	}
	contents = append(contents, restContent{Role: "user", Parts: []restPart{{Text: req.Message}}})

	body := &restRequest{Contents: contents}
	if req.Grounding {
		body.Tools = []restTool{{GoogleSearch: &struct{}{}}}
		if c.opts.ChatMaps {
			body.Tools = append(body.Tools, restTool{GoogleMaps: &struct{}{}})
		}
	}

	resp, err := c.generate(ctx, opChat, c.opts.ChatModel, body)
	if err != nil {
		return nil, err
	}
	return textResponse(opChat, resp)
}

// Speak implements Generator.
func (c *RESTClient) Speak(ctx context.Context, req SpeechRequest) (*SpeechResponse, error) {
	speech := &restSpeechConfig{}
	speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = c.opts.Voice

	body := &restRequest{
		Contents: []restContent{{Role: "user", Parts: []restPart{{Text: SpeechPrefix + req.Text}}}},
		GenerationConfig: &restGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speech,
		},
	}

	resp, err := c.generate(ctx, opSpeak, c.opts.TTSModel, body)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				logging.APIDebug("[REST] speak: %d base64 chars, mime=%s", len(part.InlineData.Data), part.InlineData.MIMEType)
				return &SpeechResponse{AudioBase64: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return nil, core.NoAudio(opSpeak)
}

// generate posts body to model and returns the decoded envelope. Transient
// failures (network, 429, 5xx) are retried up to MaxRetries times.
func (c *RESTClient) generate(ctx context.Context, op, model string, body *restRequest) (*restResponse, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	if c.opts.APIKey == "" {
		return nil, core.Transport(op, 0, false, nil, "API key not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.opts.BaseURL, "/"), model)

	startTime := time.Now()
	logging.APIDebug("[REST] %s: model=%s payload=%d bytes", op, model, len(payload))

	var lastErr *core.Error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			logging.APIWarn("[REST] %s: retry %d/%d in %v after: %v", op, attempt, c.opts.MaxRetries, wait, lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, core.Transport(op, 0, false, err, "canceled while backing off")
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, core.Transport(op, 0, false, err, "rate limiter")
		}

		resp, err := c.do(ctx, op, url, payload)
		if err == nil {
			logging.API("[REST] %s: model=%s completed in %v (tokens: prompt=%d output=%d thoughts=%d)",
				op, model, time.Since(startTime), resp.UsageMetadata.PromptTokenCount,
				resp.UsageMetadata.CandidatesTokenCount, resp.UsageMetadata.ThoughtsTokenCount)
			return resp, nil
		}
		lastErr = err
		if !err.Retryable || ctx.Err() != nil {
			break
		}
	}

	logging.APIError("[REST] %s: failed after %v: %v", op, time.Since(startTime), lastErr)
	return nil, lastErr
}

func (c *RESTClient) do(ctx context.Context, op, url string, payload []byte) (*restResponse, *core.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, core.Transport(op, 0, false, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.Transport(op, 0, ctx.Err() == nil, err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.Transport(op, resp.StatusCode, true, err, "failed to read response")
	}

	var envelope restResponse
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if decodeErr == nil && envelope.Error != nil {
			msg = envelope.Error.Message
		}
		logging.APIDebug("[REST] %s: status %d body=%s", op, resp.StatusCode, truncate(string(raw), 2000))
		return nil, classifyStatus(op, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		logging.APIDebug("[REST] %s: unreadable envelope: %s", op, truncate(string(raw), 2000))
		return nil, core.Transport(op, resp.StatusCode, false, decodeErr, "failed to parse response envelope")
	}
	if envelope.Error != nil {
		return nil, classifyStatus(op, envelope.Error.Code, envelope.Error.Message)
	}
	return &envelope, nil
}

// textResponse joins the non-thought text of the first candidate.
func textResponse(op string, resp *restResponse) (*Response, error) {
	if len(resp.Candidates) == 0 {
		reason := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return nil, core.Malformed(op, nil, "%s", reason)
	}
	cand := resp.Candidates[0]

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if !part.Thought {
			text.WriteString(part.Text)
		}
	}

	out := &Response{Text: text.String()}
	if cand.GroundingMetadata != nil {
		out.GroundingChunks = cand.GroundingMetadata.GroundingChunks
		if len(cand.GroundingMetadata.WebSearchQueries) > 0 {
			logging.APIDebug("[REST] %s: search queries=%v", op, cand.GroundingMetadata.WebSearchQueries)
		}
	}
	return out, nil
}
