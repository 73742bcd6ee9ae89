package llm

// Options contains model generation parameters. Nil fields leave the
// backend defaults in place.
type Options struct {
	Temperature     *float64 `json:"temperature,omitempty" toml:"temperature"`             // Creativity (0.0-2.0)
	TopP            *float64 `json:"top_p,omitempty" toml:"top_p"`                         // Nucleus sampling threshold
	TopK            *int     `json:"top_k,omitempty" toml:"top_k"`                         // Top-k sampling
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty" toml:"max_output_tokens"` // Reply length cap
}
