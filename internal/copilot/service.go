// Package copilot wires the generation collaborator to the decoding
// pipeline: plans are decoded, assembled and validated, chat turns are merged
// into a session, and speech is decoded and handed to the audio output.
package copilot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"evai/internal/audio"
	"evai/internal/chat"
	"evai/internal/config"
	"evai/internal/gemini"
	"evai/internal/grounding"
	"evai/internal/logging"
	"evai/internal/plan"
)

// Options selects grounding per operation.
type Options struct {
	PlanGrounding bool
	ChatGrounding bool
}

// OptionsFromConfig reads the grounding section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PlanGrounding: cfg.Grounding.PlanSearch,
		ChatGrounding: cfg.Grounding.ChatSearch,
	}
}

// PlanInput is one plan request.
type PlanInput struct {
	Prompt            string
	Image             gemini.Image
	ExtendedReasoning bool
}

// PlanResult is a validated plan plus any non-fatal validation warnings.
type PlanResult struct {
	Plan     *plan.ConversionPlan
	Warnings []plan.Issue
	Slot     PlanSlot
}

// PlanSlot identifies one plan generation. Only the most recently started
// slot may publish its plan to the workspace.
type PlanSlot uint64

// Service holds the workspace state of one copilot: the active plan and the
// audio output.
type Service struct {
	gen  gemini.Generator
	opts Options
	out  *audio.Output

	mu     sync.Mutex
	active PlanSlot
	plan   *plan.ConversionPlan
}

// New creates a copilot. out may be nil when speech is never played.
func New(gen gemini.Generator, opts Options, out *audio.Output) *Service {
	return &Service{gen: gen, opts: opts, out: out}
}

// Plan returns the active plan, or nil when there is none.
func (s *Service) Plan() *plan.ConversionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// BeginPlan discards the active plan and opens a new slot. Results from
// earlier slots are no longer published.
func (s *Service) BeginPlan() PlanSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active++
	s.plan = nil
	return s.active
}

// IsActive reports whether slot is still the latest one.
func (s *Service) IsActive(slot PlanSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == slot
}

// publish installs p if slot is still active.
func (s *Service) publish(slot PlanSlot, p *plan.ConversionPlan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != slot {
		return false
	}
	s.plan = p
	return true
}

// GeneratePlan clears the active plan, generates a new one and publishes it
// if no newer generation started in the meantime. On failure the workspace
// is left without a plan.
func (s *Service) GeneratePlan(ctx context.Context, in PlanInput) (*PlanResult, error) {
	slot := s.BeginPlan()
	logging.Plan("slot %d: generating plan (reasoning=%v grounding=%v)", slot, in.ExtendedReasoning, s.opts.PlanGrounding)

	res, err := s.runPlan(ctx, in)
	if err != nil {
		logging.PlanError("slot %d: %v", slot, err)
		return nil, err
	}
	res.Slot = slot
	if !s.publish(slot, res.Plan) {
		logging.PlanDebug("slot %d: superseded, plan not published", slot)
	}
	return res, nil
}

// BatchResult is the outcome for one input of GeneratePlans.
type BatchResult struct {
	Input  PlanInput
	Result *PlanResult
	Err    error
}

// GeneratePlans runs several plan requests with at most limit in flight.
// Each input gets its own result; one failure does not cancel the others.
// Batch results are not published to the workspace.
func (s *Service) GeneratePlans(ctx context.Context, inputs []PlanInput, limit int) []BatchResult {
	results := make([]BatchResult, len(inputs))
	if limit < 1 {
		limit = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, in := range inputs {
		eg.Go(func() error {
			res, err := s.runPlan(egCtx, in)
			results[i] = BatchResult{Input: in, Result: res, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logging.Plan("batch: %d plan(s), %d failed", len(inputs), failed)
	return results
}

// runPlan is the generate, decode, normalize, assemble, validate pipeline.
func (s *Service) runPlan(ctx context.Context, in PlanInput) (*PlanResult, error) {
	start := time.Now()
	resp, err := s.gen.GeneratePlan(ctx, gemini.PlanRequest{
		Prompt:            in.Prompt,
		Image:             in.Image,
		Schema:            plan.Schema(),
		Grounding:         s.opts.PlanGrounding,
		ExtendedReasoning: in.ExtendedReasoning,
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	body, err := plan.Decode(resp.Text)
	if err != nil {
		logging.PlanDebug("undecodable plan text: %.500s", resp.Text)
		return nil, err
	}

	citations := grounding.Normalize(resp.GroundingChunks)
	p := plan.Assemble(body, citations)

	warnings, err := plan.Check(p)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logging.PlanWarn("plan warning: %s", w)
	}

	logging.Plan("plan ready in %v: %d BOM item(s), %d citation(s)", time.Since(start), len(p.BOM), len(p.Citations))
	return &PlanResult{Plan: p, Warnings: warnings}, nil
}

// NewChat starts a conversation backed by the generator.
func (s *Service) NewChat() *chat.Session {
	return chat.NewSession(chatSender{gen: s.gen, grounding: s.opts.ChatGrounding})
}

type chatSender struct {
	gen       gemini.Generator
	grounding bool
}

func (c chatSender) SendMessage(ctx context.Context, history []chat.Message, text string) (chat.Reply, error) {
	resp, err := c.gen.Chat(ctx, gemini.ChatRequest{History: history, Message: text, Grounding: c.grounding})
	if err != nil {
		return chat.Reply{}, err
	}
	return chat.Reply{Text: resp.Text, GroundingChunks: resp.GroundingChunks}, nil
}

// Synthesize requests speech for text and decodes it to mono samples.
func (s *Service) Synthesize(ctx context.Context, text string) (*audio.DecodedAudio, error) {
	resp, err := s.gen.Speak(ctx, gemini.SpeechRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("speak: %w", err)
	}
	decoded, err := audio.DecodeBase64PCM(resp.AudioBase64, 1)
	if err != nil {
		return nil, err
	}
	logging.Audio("synthesized %v of audio (%d frames)", decoded.Duration(), decoded.Frames())
	return decoded, nil
}

// Speak synthesizes text and plays it on the shared output.
func (s *Service) Speak(ctx context.Context, text string) (*audio.DecodedAudio, error) {
	decoded, err := s.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.out == nil {
		return decoded, nil
	}
	if err := s.out.Play(ctx, decoded); err != nil {
		return decoded, fmt.Errorf("play: %w", err)
	}
	return decoded, nil
}
