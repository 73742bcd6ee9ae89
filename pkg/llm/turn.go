package llm

// Transcript is a snapshot of a chat session.
type Transcript struct {
	SessionID string     `json:"session_id"`
	Turns     []ChatTurn `json:"turns"`
	Pending   bool       `json:"pending"` // A message is waiting for its reply
	HeadHash  string     `json:"head_hash,omitempty"`
}
