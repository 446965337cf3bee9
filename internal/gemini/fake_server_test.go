package gemini

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// fakeReply is one scripted response from fakeGemini.
type fakeReply struct {
	status int
	body   string
}

// fakeGemini is a generateContent endpoint that records requests and plays
// back scripted replies; the last reply repeats once the script runs out.
type fakeGemini struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	replies []fakeReply
	calls   int
	paths   []string
	keys    []string
	bodies  []gjson.Result
}

func newFakeGemini(t *testing.T, replies ...fakeReply) *fakeGemini {
	t.Helper()
	f := &fakeGemini{t: t, replies: replies}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGemini) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		f.t.Errorf("expected POST, got %s", r.Method)
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Errorf("read body: %v", err)
	}

	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	f.calls++
	f.paths = append(f.paths, r.URL.Path)
	f.keys = append(f.keys, r.Header.Get("x-goog-api-key"))
	f.bodies = append(f.bodies, gjson.ParseBytes(raw))
	reply := f.replies[idx]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = w.Write([]byte(reply.body))
}

func (f *fakeGemini) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGemini) LastBody() gjson.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeGemini) LastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[len(f.paths)-1]
}

func (f *fakeGemini) LastKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[len(f.keys)-1]
}

func ok(body string) fakeReply { return fakeReply{status: http.StatusOK, body: body} }

func testOptions(baseURL string) Options {
	return Options{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		PlanModel:      "plan-model",
		ChatModel:      "chat-model",
		TTSModel:       "tts-model",
		Voice:          "Kore",
		ThinkingBudget: 32768,
		ChatMaps:       true,
	}
}

const planReply = `{
	"candidates": [{
		"content": {"role": "model", "parts": [
			{"text": "weighing motor options", "thought": true},
			{"text": "{\"summary\": "},
			{"text": "\"ok\"}"}
		]},
		"finishReason": "STOP",
		"groundingMetadata": {
			"webSearchQueries": ["FMVSS 305"],
			"groundingChunks": [
				{"web": {"uri": "https://nhtsa.gov/305", "title": "FMVSS 305"}}
			]
		}
	}],
	"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "thoughtsTokenCount": 3}
}`

const speechReply = `{
	"candidates": [{
		"content": {"role": "model", "parts": [
			{"inlineData": {"mimeType": "audio/L16;codec=pcm;rate=24000", "data": "AAD/fw=="}}
		]}
	}]
}`

const textOnlyReply = `{"candidates": [{"content": {"role": "model", "parts": [{"text": "no audio here"}]}}]}`

var testImage = Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}
