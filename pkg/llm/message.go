package llm

import "time"

// Speaker attributes a turn to one side of the conversation.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// ChatTurn is one message in a conversation. Turns are never mutated after
// they are appended to a transcript.
type ChatTurn struct {
	Hash      string    `json:"hash,omitempty"`  // Transcript node hash
	Speaker   Speaker   `json:"speaker"`         // "user" or "assistant"
	Text      string    `json:"text"`            // Message text, markdown for replies
	Image     string    `json:"image,omitempty"` // Optional image data URI sent with a user turn
	CreatedAt time.Time `json:"created_at"`
}
