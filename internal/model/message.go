package model

// Message is one turn of a conversation, kept for follow-up questions.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
