package gemini

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evai/internal/chat"
	"evai/internal/core"
	"evai/internal/plan"
)

func newTestGenAIClient(t *testing.T, fake *fakeGemini, mutate ...func(*Options)) *GenAIClient {
	t.Helper()
	opts := testOptions(fake.server.URL + "/v1beta")
	for _, m := range mutate {
		m(&opts)
	}
	client, err := NewGenAIClient(context.Background(), opts)
	require.NoError(t, err)
	return client
}

func TestSplitAPIVersion(t *testing.T) {
	cases := []struct {
		in, base, version string
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "https://generativelanguage.googleapis.com/", "v1beta"},
		{"https://generativelanguage.googleapis.com/v1/", "https://generativelanguage.googleapis.com/", "v1"},
		{"https://proxy.internal/gemini", "https://proxy.internal/gemini/", ""},
		{"http://127.0.0.1:8080", "http://127.0.0.1:8080/", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		base, version := splitAPIVersion(tc.in)
		assert.Equal(t, tc.base, base, tc.in)
		assert.Equal(t, tc.version, version, tc.in)
	}
}

func TestGenAIClient_GeneratePlan(t *testing.T) {
	fake := newFakeGemini(t, ok(planReply))
	client := newTestGenAIClient(t, fake)

	resp, err := client.GeneratePlan(context.Background(), PlanRequest{
		Prompt:            "Convert my 1990 Miata",
		Image:             testImage,
		Schema:            plan.Schema(),
		Grounding:         true,
		ExtendedReasoning: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"summary": "ok"}`, resp.Text)
	assert.Contains(t, string(resp.GroundingChunks), `"uri":"https://nhtsa.gov/305"`)

	assert.Equal(t, "/v1beta/models/plan-model:generateContent", fake.LastPath())
	assert.Equal(t, "test-key", fake.LastKey())

	body := fake.LastBody()
	assert.Equal(t, "Convert my 1990 Miata", body.Get("contents.0.parts.0.text").String())
	assert.Equal(t, "image/png", body.Get("contents.0.parts.1.inlineData.mimeType").String())
	assert.Equal(t, PlanSystemInstruction, body.Get("systemInstruction.parts.0.text").String())
	assert.Equal(t, "application/json", body.Get("generationConfig.responseMimeType").String())
	assert.True(t, body.Get("generationConfig.responseSchema").Exists())
	assert.Equal(t, int64(32768), body.Get("generationConfig.thinkingConfig.thinkingBudget").Int())
	assert.True(t, body.Get("tools.0.googleSearch").Exists())
}

func TestGenAIClient_Chat(t *testing.T) {
	fake := newFakeGemini(t, ok(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "Use 4/0 cable."}]}}]}`))
	client := newTestGenAIClient(t, fake)

	history := []chat.Message{
		{Role: chat.RoleUser, Parts: []chat.Part{{Text: "What motor?"}}},
		{Role: chat.RoleModel, Parts: []chat.Part{{Text: "A HyPer 9."}}},
	}
	resp, err := client.Chat(context.Background(), ChatRequest{History: history, Message: "What cable gauge?", Grounding: true})
	require.NoError(t, err)
	assert.Equal(t, "Use 4/0 cable.", resp.Text)
	assert.Nil(t, resp.GroundingChunks)

	body := fake.LastBody()
	assert.Equal(t, "/v1beta/models/chat-model:generateContent", fake.LastPath())
	assert.Equal(t, "model", body.Get("contents.1.role").String())
	assert.Equal(t, "What cable gauge?", body.Get("contents.2.parts.0.text").String())
	assert.Len(t, body.Get("tools").Array(), 2)
}

func TestGenAIClient_Speak(t *testing.T) {
	fake := newFakeGemini(t, ok(speechReply))
	client := newTestGenAIClient(t, fake)

	resp, err := client.Speak(context.Background(), SpeechRequest{Text: "Plan ready."})
	require.NoError(t, err)
	assert.Equal(t, "AAD/fw==", resp.AudioBase64, "SDK bytes are re-encoded as standard base64")

	body := fake.LastBody()
	assert.Equal(t, SpeechPrefix+"Plan ready.", body.Get("contents.0.parts.0.text").String())
	assert.Equal(t, "Kore", body.Get("generationConfig.speechConfig.voiceConfig.prebuiltVoiceConfig.voiceName").String())
}

func TestGenAIClient_Speak_NoAudio(t *testing.T) {
	fake := newFakeGemini(t, ok(textOnlyReply))
	client := newTestGenAIClient(t, fake)

	_, err := client.Speak(context.Background(), SpeechRequest{Text: "hello"})
	assert.ErrorIs(t, err, core.ErrNoAudioData)
}

func TestGenAIClient_StatusMapping(t *testing.T) {
	fake := newFakeGemini(t, fakeReply{status: http.StatusTooManyRequests, body: `{"error": {"code": 429, "message": "quota", "status": "RESOURCE_EXHAUSTED"}}`})
	client := newTestGenAIClient(t, fake)

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.True(t, core.IsRetryable(err))

	var cerr *core.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusTooManyRequests, cerr.StatusCode)
}

func TestGenAIClient_RetriesTransientFailures(t *testing.T) {
	fake := newFakeGemini(t,
		fakeReply{status: http.StatusServiceUnavailable, body: `{"error": {"code": 503, "message": "overloaded"}}`},
		ok(textOnlyReply),
	)
	client := newTestGenAIClient(t, fake, func(o *Options) { o.MaxRetries = 1 })

	resp, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "no audio here", resp.Text)
	assert.Equal(t, 2, fake.Calls())
}

func TestGenAIClient_NoCandidates(t *testing.T) {
	fake := newFakeGemini(t, ok(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	client := newTestGenAIClient(t, fake)

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
}

func TestNewGenAIClient_RequiresKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), Options{})
	assert.ErrorIs(t, err, core.ErrTransport)
}
