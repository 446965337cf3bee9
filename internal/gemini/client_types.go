package gemini

import (
	"encoding/json"

	"google.golang.org/genai"
)

// REST wire types for models/{model}:generateContent.

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *restBlob `json:"inlineData,omitempty"`
	Thought    bool      `json:"thought,omitempty"`
}

// restBlob carries base64 data, as the REST API encodes it.
type restBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type restThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type restSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type restGenerationConfig struct {
	ResponseMIMEType   string              `json:"responseMimeType,omitempty"`
	ResponseSchema     *genai.Schema       `json:"responseSchema,omitempty"`
	ThinkingConfig     *restThinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *restSpeechConfig   `json:"speechConfig,omitempty"`
}

type restTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
	GoogleMaps   *struct{} `json:"googleMaps,omitempty"`
}

type restRequest struct {
	Contents          []restContent         `json:"contents"`
	SystemInstruction *restContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *restGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []restTool            `json:"tools,omitempty"`
}

type restResponse struct {
	Candidates     []restCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *restError `json:"error,omitempty"`
}

type restCandidate struct {
	Content           restContent `json:"content"`
	FinishReason      string      `json:"finishReason"`
	GroundingMetadata *struct {
		// Kept raw; the grounding package reads it.
		GroundingChunks  json.RawMessage `json:"groundingChunks"`
		WebSearchQueries []string        `json:"webSearchQueries"`
	} `json:"groundingMetadata,omitempty"`
}

type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
