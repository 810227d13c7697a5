package domain

// Chat roles accepted on the wire. Role alternation is not enforced.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is everything an adapter needs to assemble one upstream request.
// System may be empty, in which case only History and Latest are sent.
// Latest is skipped when its Role is empty.
type Prompt struct {
	System  string
	History []ChatMessage
	Latest  ChatMessage
}
