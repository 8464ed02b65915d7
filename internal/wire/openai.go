package wire

// OpenAIContentPart is one element of an OpenAI multi-modal message's
// content list.
type OpenAIContentPart struct {
	Type     string          `json:"type"` // "text" | "image_url"
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

// OpenAIImageURL carries a data: URL for inline base64 images.
type OpenAIImageURL struct {
	URL string `json:"url"`
}

// OpenAIFunctionCall is the name/arguments pair inside a ChatMessage's
// tool_calls entry. Arguments is a JSON-encoded string, per the OpenAI
// wire format — never a decoded map.
type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIToolCall is one element of ChatMessage.ToolCalls.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"` // "function"
	Function OpenAIFunctionCall `json:"function"`
}

// ChatMessage is one message in an OpenAI chat-completions request or
// response, covering the "tool" role OpenAI uses for tool-result replies.
type ChatMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content,omitempty"` // string | []OpenAIContentPart | nil
	Name       string           `json:"name,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`

	// Reasoning surfaces, present on providers that expose chain-of-thought
	//.
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// OpenAIFunction describes one callable function in a tool definition.
type OpenAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OpenAIToolDef is one element of ChatCompletionRequest.Tools.
type OpenAIToolDef struct {
	Type     string         `json:"type"` // "function"
	Function OpenAIFunction `json:"function"`
}

// ChatCompletionRequest is the outbound OpenAI-compatible request body
// produced by C3.
type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []ChatMessage   `json:"messages"`
	Tools       []OpenAIToolDef `json:"tools,omitempty"`
	ToolChoice  any             `json:"tool_choice,omitempty"` // "auto" | "required" | {type, function:{name}}
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// ChatCompletionChoice is one element of a non-streaming response's
// Choices list.
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionUsage is the prompt/completion token accounting OpenAI
// reports.
type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the inbound OpenAI-compatible non-streaming
// response body consumed by C4.
type ChatCompletionResponse struct {
	ID      string                  `json:"id"`
	Model   string                  `json:"model"`
	Choices []ChatCompletionChoice  `json:"choices"`
	Usage   ChatCompletionUsage     `json:"usage"`
}

// OpenAIToolCallDelta is one fragment of a streaming tool_calls delta.
// Index identifies which logical tool call this fragment belongs to;
// Function.Arguments may arrive split across many chunks.
type OpenAIToolCallDelta struct {
	Index    int                     `json:"index"`
	ID       string                  `json:"id,omitempty"`
	Type     string                  `json:"type,omitempty"`
	Function OpenAIFunctionCallDelta `json:"function,omitempty"`
}

// OpenAIFunctionCallDelta is the partial name/arguments pair inside one
// streaming tool-call delta fragment.
type OpenAIFunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatCompletionDelta is the incremental content of one streaming chunk.
type ChatCompletionDelta struct {
	Role             string                 `json:"role,omitempty"`
	Content          string                 `json:"content,omitempty"`
	ToolCalls        []OpenAIToolCallDelta  `json:"tool_calls,omitempty"`
	ReasoningContent string                 `json:"reasoning_content,omitempty"`
}

// ChatCompletionChunkChoice is one element of a streaming chunk's Choices.
type ChatCompletionChunkChoice struct {
	Index        int                 `json:"index"`
	Delta        ChatCompletionDelta `json:"delta"`
	FinishReason *string             `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE data payload in an OpenAI-compatible
// streaming response, consumed by C5's normalizer.
type ChatCompletionChunk struct {
	ID      string                      `json:"id"`
	Model   string                      `json:"model"`
	Choices []ChatCompletionChunkChoice `json:"choices"`
	Usage   *ChatCompletionUsage        `json:"usage,omitempty"`
}
