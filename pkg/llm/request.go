package llm

// AdviceRequest is the body of an advice call.
type AdviceRequest struct {
	Prompt string `json:"prompt"`          // Free-form question, may be empty when Image is set
	Image  string `json:"image,omitempty"` // Optional data:<type>;base64,<bytes> URI
}
