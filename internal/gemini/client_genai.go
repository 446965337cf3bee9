package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"evai/internal/core"
	"evai/internal/logging"
)

// GenAIClient calls the Gemini API through the google.golang.org/genai SDK.
type GenAIClient struct {
	opts    Options
	client  *genai.Client
	limiter *rate.Limiter
}

// NewGenAIClient creates an SDK-backed transport.
func NewGenAIClient(ctx context.Context, opts Options) (*GenAIClient, error) {
	if opts.APIKey == "" {
		return nil, core.Transport("gemini.client", 0, false, nil, "API key not configured")
	}

	base, version := splitAPIVersion(opts.BaseURL)
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    base,
			APIVersion: version,
			Headers:    http.Header{},
		},
	}
	if opts.Timeout > 0 {
		cfg.HTTPOptions.Timeout = genai.Ptr(opts.Timeout)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, core.Transport("gemini.client", 0, false, err, "failed to create genai client")
	}
	logging.BootDebug("genai client: base=%q version=%q", base, version)

	return &GenAIClient{opts: opts, client: client, limiter: newLimiter(opts.MinInterval)}, nil
}

// splitAPIVersion separates a trailing /v1beta or /v1 from the base URL,
// since the SDK appends the version itself.
func splitAPIVersion(baseURL string) (base, version string) {
	base = strings.TrimRight(baseURL, "/")
	if base == "" {
		return "", ""
	}
	i := strings.LastIndex(base, "/")
	if i < 0 {
		return base + "/", ""
	}
	last := base[i+1:]
	if strings.HasPrefix(last, "v1") {
		return base[:i+1], last
	}
	return base + "/", ""
}

// GeneratePlan implements Generator.
func (c *GenAIClient) GeneratePlan(ctx context.Context, req PlanRequest) (*Response, error) {
	if err := validatePlanRequest(req); err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(PlanSystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    req.Schema,
	}
	if req.ExtendedReasoning && c.opts.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(c.opts.ThinkingBudget))}
	}
	if req.Grounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.generate(ctx, opPlan, c.opts.PlanModel, contents, cfg)
	if err != nil {
		return nil, err
	}
	return genaiTextResponse(opPlan, resp)
}

// Chat implements Generator.
func (c *GenAIClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		parts := make([]*genai.Part, len(m.Parts))
		for i, p := range m.Parts {
			parts[i] = genai.NewPartFromText(p.Text)
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(m.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if req.Grounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		if c.opts.ChatMaps {
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		}
	}

	resp, err := c.generate(ctx, opChat, c.opts.ChatModel, contents, cfg)
	if err != nil {
		return nil, err
	}
	return genaiTextResponse(opChat, resp)
}

// Speak implements Generator.
func (c *GenAIClient) Speak(ctx context.Context, req SpeechRequest) (*SpeechResponse, error) {
	contents := []*genai.Content{genai.NewContentFromText(SpeechPrefix+req.Text, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
	}

	resp, err := c.generate(ctx, opSpeak, c.opts.TTSModel, contents, cfg)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				logging.APIDebug("[genai] speak: %d bytes, mime=%s", len(part.InlineData.Data), part.InlineData.MIMEType)
				return &SpeechResponse{
					AudioBase64: base64.StdEncoding.EncodeToString(part.InlineData.Data),
					MIMEType:    part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, core.NoAudio(opSpeak)
}

func (c *GenAIClient) generate(ctx context.Context, op, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[genai] %s: model=%s contents=%d", op, model, len(contents))

	var lastErr *core.Error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			logging.APIWarn("[genai] %s: retry %d/%d in %v after: %v", op, attempt, c.opts.MaxRetries, wait, lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, core.Transport(op, 0, false, err, "canceled while backing off")
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, core.Transport(op, 0, false, err, "rate limiter")
		}

		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			if u := resp.UsageMetadata; u != nil {
				logging.API("[genai] %s: model=%s completed in %v (tokens: prompt=%d output=%d thoughts=%d)",
					op, model, time.Since(startTime), u.PromptTokenCount, u.CandidatesTokenCount, u.ThoughtsTokenCount)
			} else {
				logging.API("[genai] %s: model=%s completed in %v", op, model, time.Since(startTime))
			}
			return resp, nil
		}
		lastErr = classifySDKError(ctx, op, err)
		if !lastErr.Retryable || ctx.Err() != nil {
			break
		}
	}

	logging.APIError("[genai] %s: failed after %v: %v", op, time.Since(startTime), lastErr)
	return nil, lastErr
}

// classifySDKError maps SDK failures onto the same transport errors the REST
// client produces.
func classifySDKError(ctx context.Context, op string, err error) *core.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		e := classifyStatus(op, apiErr.Code, apiErr.Message)
		e.Cause = err
		return e
	}
	var ptrErr *genai.APIError
	if errors.As(err, &ptrErr) && ptrErr != nil {
		e := classifyStatus(op, ptrErr.Code, ptrErr.Message)
		e.Cause = err
		return e
	}
	return core.Transport(op, 0, ctx.Err() == nil, err, "request failed")
}

func genaiTextResponse(op string, resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		reason := "no candidates"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return nil, core.Malformed(op, nil, "%s", reason)
	}
	cand := resp.Candidates[0]

	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}

	out := &Response{Text: text.String()}
	if gm := cand.GroundingMetadata; gm != nil && len(gm.GroundingChunks) > 0 {
		raw, err := json.Marshal(gm.GroundingChunks)
		if err != nil {
			logging.APIWarn("[genai] %s: could not re-encode grounding chunks: %v", op, err)
		} else {
			out.GroundingChunks = raw
		}
		if len(gm.WebSearchQueries) > 0 {
			logging.APIDebug("[genai] %s: search queries=%v", op, gm.WebSearchQueries)
		}
	}
	return out, nil
}
