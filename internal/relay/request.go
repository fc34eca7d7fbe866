package relay

import (
	"strings"

	"relayd/internal/upstream"
)

// GenerationRequest is one relay call. It lives for the duration of the request.
type GenerationRequest struct {
	Prompt       string
	SystemPrompt string
	// ModelID falls back to the relay's default model when empty.
	ModelID   string
	Streaming bool
}

// Validate reports ErrPromptRequired when the prompt is empty or whitespace.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &Error{Kind: KindInput, Err: ErrPromptRequired}
	}
	return nil
}

func (r GenerationRequest) upstreamRequest(defaultModel string) upstream.GenerateRequest {
	model := strings.TrimSpace(r.ModelID)
	if model == "" {
		model = defaultModel
	}
	return upstream.GenerateRequest{
		Model:  model,
		Prompt: r.Prompt,
		System: r.SystemPrompt,
		Stream: r.Streaming,
	}
}
