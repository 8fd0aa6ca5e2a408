package completion

// Turn is one role-tagged unit of conversation context sent upstream.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validation is the result of a credential check. ValidateCredential always
// returns a Validation, never an error.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// chatRequest is the wire format of an OpenAI-compatible completion request.
type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream"`
}

// chatStreamChunk is one SSE record of a streaming response.
type chatStreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// errorBody is the structured error payload of a non-success response.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
