package dendrite

import (
	"encoding/json"
	"time"

	"github.com/jonahkesoyan/bittensor/protocol"
	"github.com/jonahkesoyan/bittensor/synapse"
)

// Call is the client-side view of one exchange: where it goes, what it
// sends, and how the response lands back in it. The wire body types are
// shared with the serving side.
type Call interface {
	// Name labels the operation in envelopes and rpc logs.
	Name() string
	// IsForward distinguishes forward calls from backward feedback.
	IsForward() bool
	// Timeout is the call's total budget, also sent on the wire.
	Timeout() time.Duration
	// Route is the path the request is posted to.
	Route() string
	// RequestBody is the JSON-serializable request payload.
	RequestBody() any
	// ApplyResponse parses a 200 response body into the call.
	ApplyResponse(body []byte) error
	// Outcome reports the server's return code and message after
	// ApplyResponse.
	Outcome() (protocol.ReturnCode, string)
	// InputShapes and OutputShapes are the coarse payload descriptors for
	// the rpc log. OutputShapes is nil unless the exchange succeeded.
	InputShapes() []int
	OutputShapes() []int
}

func normalizeTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return synapse.DefaultTimeout
	}
	return timeout
}

// wireSeconds converts the call budget into the integer seconds sent on the
// wire, rounding up so a sub-second budget never truncates to zero — the
// server reads zero as "use the default" and would run far past the
// client's deadline.
func wireSeconds(timeout time.Duration) int {
	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// TextCompletionCall asks a peer to complete a prompt.
type TextCompletionCall struct {
	body    synapse.ForwardTextBody
	timeout time.Duration
}

// NewTextCompletion builds a forward text completion call. Zero timeout
// means the default budget.
func NewTextCompletion(roles, messages []string, timeout time.Duration) *TextCompletionCall {
	timeout = normalizeTimeout(timeout)
	return &TextCompletionCall{
		body: synapse.ForwardTextBody{
			CallBody: synapse.CallBody{Timeout: wireSeconds(timeout)},
			Roles:    roles,
			Messages: messages,
		},
		timeout: timeout,
	}
}

func (c *TextCompletionCall) Name() string           { return synapse.TextCompletionName }
func (c *TextCompletionCall) IsForward() bool        { return true }
func (c *TextCompletionCall) Timeout() time.Duration { return c.timeout }
func (c *TextCompletionCall) Route() string          { return synapse.RouteTextCompletionForward }
func (c *TextCompletionCall) RequestBody() any       { return &c.body }

func (c *TextCompletionCall) ApplyResponse(body []byte) error {
	return json.Unmarshal(body, &c.body)
}

func (c *TextCompletionCall) Outcome() (protocol.ReturnCode, string) {
	return c.body.ReturnCode, c.body.ReturnMessage
}

// Completion returns the peer's completion; empty unless the exchange
// succeeded.
func (c *TextCompletionCall) Completion() string { return c.body.Completion }

func (c *TextCompletionCall) InputShapes() []int {
	return []int{len(c.body.Roles), len(c.body.Messages)}
}

func (c *TextCompletionCall) OutputShapes() []int {
	if c.body.ReturnCode != protocol.CodeSuccess {
		return nil
	}
	return []int{len(c.body.Completion)}
}

// TextBackwardCall reports rewards for an earlier completion.
type TextBackwardCall struct {
	body    synapse.BackwardTextBody
	timeout time.Duration
}

// NewTextBackward builds the backward half of a text completion exchange:
// the original prompt, the completion being scored, and one reward per
// message.
func NewTextBackward(roles, messages []string, completion string, rewards []float64, timeout time.Duration) *TextBackwardCall {
	timeout = normalizeTimeout(timeout)
	return &TextBackwardCall{
		body: synapse.BackwardTextBody{
			CallBody:   synapse.CallBody{Timeout: wireSeconds(timeout)},
			Roles:      roles,
			Messages:   messages,
			Completion: completion,
			Rewards:    rewards,
		},
		timeout: timeout,
	}
}

func (c *TextBackwardCall) Name() string           { return synapse.TextCompletionName }
func (c *TextBackwardCall) IsForward() bool        { return false }
func (c *TextBackwardCall) Timeout() time.Duration { return c.timeout }
func (c *TextBackwardCall) Route() string          { return synapse.RouteTextCompletionBackward }
func (c *TextBackwardCall) RequestBody() any       { return &c.body }

func (c *TextBackwardCall) ApplyResponse(body []byte) error {
	return json.Unmarshal(body, &c.body)
}

func (c *TextBackwardCall) Outcome() (protocol.ReturnCode, string) {
	return c.body.ReturnCode, c.body.ReturnMessage
}

func (c *TextBackwardCall) InputShapes() []int {
	return []int{len(c.body.Messages), len(c.body.Rewards)}
}

func (c *TextBackwardCall) OutputShapes() []int { return nil }

// TextEmbeddingCall asks a peer to embed a text.
type TextEmbeddingCall struct {
	body    synapse.ForwardEmbeddingBody
	timeout time.Duration
}

// NewTextEmbedding builds a text embedding call. Zero timeout means the
// default budget.
func NewTextEmbedding(text string, timeout time.Duration) *TextEmbeddingCall {
	timeout = normalizeTimeout(timeout)
	return &TextEmbeddingCall{
		body: synapse.ForwardEmbeddingBody{
			CallBody: synapse.CallBody{Timeout: wireSeconds(timeout)},
			Text:     text,
		},
		timeout: timeout,
	}
}

func (c *TextEmbeddingCall) Name() string           { return synapse.TextEmbeddingName }
func (c *TextEmbeddingCall) IsForward() bool        { return true }
func (c *TextEmbeddingCall) Timeout() time.Duration { return c.timeout }
func (c *TextEmbeddingCall) Route() string          { return synapse.RouteTextEmbeddingForward }
func (c *TextEmbeddingCall) RequestBody() any       { return &c.body }

func (c *TextEmbeddingCall) ApplyResponse(body []byte) error {
	return json.Unmarshal(body, &c.body)
}

func (c *TextEmbeddingCall) Outcome() (protocol.ReturnCode, string) {
	return c.body.ReturnCode, c.body.ReturnMessage
}

// Embedding returns the peer's embedding rows; nil unless the exchange
// succeeded.
func (c *TextEmbeddingCall) Embedding() [][]float64 { return c.body.Embedding }

func (c *TextEmbeddingCall) InputShapes() []int {
	return []int{len(c.body.Text)}
}

func (c *TextEmbeddingCall) OutputShapes() []int {
	if c.body.ReturnCode != protocol.CodeSuccess {
		return nil
	}
	rows := len(c.body.Embedding)
	cols := 0
	if rows > 0 {
		cols = len(c.body.Embedding[0])
	}
	return []int{rows, cols}
}

// TextToSpeechCall asks a peer to synthesize speech for a text.
type TextToSpeechCall struct {
	body    synapse.ForwardSpeechBody
	timeout time.Duration
}

// NewTextToSpeech builds a speech synthesis call. Zero timeout means the
// default budget.
func NewTextToSpeech(text string, timeout time.Duration) *TextToSpeechCall {
	timeout = normalizeTimeout(timeout)
	return &TextToSpeechCall{
		body: synapse.ForwardSpeechBody{
			CallBody: synapse.CallBody{Timeout: wireSeconds(timeout)},
			Text:     text,
		},
		timeout: timeout,
	}
}

func (c *TextToSpeechCall) Name() string           { return synapse.TextToSpeechName }
func (c *TextToSpeechCall) IsForward() bool        { return true }
func (c *TextToSpeechCall) Timeout() time.Duration { return c.timeout }
func (c *TextToSpeechCall) Route() string          { return synapse.RouteTextToSpeechForward }
func (c *TextToSpeechCall) RequestBody() any       { return &c.body }

func (c *TextToSpeechCall) ApplyResponse(body []byte) error {
	return json.Unmarshal(body, &c.body)
}

func (c *TextToSpeechCall) Outcome() (protocol.ReturnCode, string) {
	return c.body.ReturnCode, c.body.ReturnMessage
}

// Speech returns the synthesized audio bytes; nil unless the exchange
// succeeded.
func (c *TextToSpeechCall) Speech() []byte { return c.body.Speech }

func (c *TextToSpeechCall) InputShapes() []int {
	return []int{len(c.body.Text)}
}

func (c *TextToSpeechCall) OutputShapes() []int {
	if c.body.ReturnCode != protocol.CodeSuccess {
		return nil
	}
	return []int{len(c.body.Speech)}
}
