package llm

// AdviceResponse carries the text to show in the chat, either a model reply
// or a fallback message.
type AdviceResponse struct {
	Text string `json:"text"`
}

// TurnResponse is returned after a chat message was answered.
type TurnResponse struct {
	Turn ChatTurn `json:"turn"`
}
