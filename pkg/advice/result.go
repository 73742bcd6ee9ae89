package advice

// Kind tags the outcome of an advice call.
type Kind string

const (
	KindOK           Kind = "ok"
	KindNoText       Kind = "no_text"
	KindInvalidImage Kind = "invalid_image"
	KindAuth         Kind = "auth"
	KindRateLimited  Kind = "rate_limited"
	KindTransport    Kind = "transport"
	KindBackend      Kind = "backend"
	KindCanceled     Kind = "canceled"
)

// Messages shown in place of a reply.
const (
	NoResponseMessage   = "I'm sorry, I couldn't generate a response. Please try again."
	ErrorMessage        = "An error occurred while connecting to the AI service. Please check your connection and try again."
	InvalidImageMessage = "I couldn't read that image. Please upload a valid PNG, JPEG, WEBP, HEIC or HEIF photo and try again."
)

// Result is Ok(Text), NoText, or a failure of some Kind with its cause.
type Result struct {
	Kind Kind
	Text string
	Err  error
}

// OK reports whether the result carries model text.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

func reply(text string) Result {
	if text == "" {
		return Result{Kind: KindNoText}
	}
	return Result{Kind: KindOK, Text: text}
}

func failure(kind Kind, err error) Result {
	return Result{Kind: kind, Err: err}
}

// Present maps a result to the text a chat bubble shows.
func Present(r Result) string {
	switch r.Kind {
	case KindOK:
		return r.Text
	case KindNoText:
		return NoResponseMessage
	case KindInvalidImage:
		return InvalidImageMessage
	default:
		return ErrorMessage
	}
}
