package domain

// Conversation is a point-in-time copy of one chat session's history.
type Conversation struct {
	ID       string        `json:"sessionId"`
	Messages []ChatMessage `json:"messages"`
}
