package types

// ChatRequest is the payload accepted by POST /api/chat.
type ChatRequest struct {
	// Required user message forwarded upstream as the prompt.
	// example: Write a haiku about the ocean.
	Message string `json:"message" example:"Write a haiku about the ocean."`
	// Optional system prompt. Empty means no system prompt.
	// example: You are a helpful assistant.
	SystemPrompt string `json:"systemPrompt,omitempty" example:"You are a helpful assistant."`
	// If true, the reply is streamed as raw text fragments. Otherwise a single JSON body is returned.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Optional model identifier. If empty, the server default is used.
	// example: llama3.2
	Model string `json:"model,omitempty" example:"llama3.2"`
}

// ChatResponse is returned by POST /api/chat when stream is false.
type ChatResponse struct {
	// Complete generated text.
	// example: Waves fold into foam
	Response string `json:"response" example:"Waves fold into foam"`
}

// ModelsResponse wraps the list of models returned by GET /api/models.
type ModelsResponse struct {
	// Installed model names in upstream order.
	// example: ["llama3.2","mistral"]
	Models []string `json:"models"`
	// Set when the upstream could not be queried.
	Error string `json:"error,omitempty"`
	// HTTP status code, set together with Error.
	Code int `json:"code,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
