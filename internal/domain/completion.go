package domain

// ObjectChatCompletion is the object-kind tag of every canonical completion.
const ObjectChatCompletion = "chat.completion"

// Usage is the canonical token accounting of one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds Usage with TotalTokens computed from its parts.
func NewUsage(prompt, completion int) Usage {
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// Completion is the canonical, provider-agnostic result of one upstream call.
type Completion struct {
	ID           string
	Object       string
	Created      int64
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
	Provider     Provider
}
