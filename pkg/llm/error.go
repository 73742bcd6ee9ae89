// Package llm holds the wire-level types shared by the chat front-ends:
// conversation turns and the JSON bodies of the advice API.
package llm

// ErrorResponse is the JSON body returned for caller mistakes.
type ErrorResponse struct {
	Error string `json:"error"`
}
