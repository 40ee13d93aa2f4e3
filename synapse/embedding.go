package synapse

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// RouteTextEmbeddingForward is the wire path of the embedding family.
const RouteTextEmbeddingForward = "/TextToEmbedding/Forward/"

// TextEmbeddingName labels the family in envelopes and rpc logs.
const TextEmbeddingName = "text_to_embedding"

// ForwardEmbeddingBody is the wire body of an embedding exchange: text in,
// one embedding vector per input row out.
type ForwardEmbeddingBody struct {
	CallBody
	Text      string      `json:"text"`
	Embedding [][]float64 `json:"embedding"`
}

// TextEmbeddingHandler produces embeddings for a text.
type TextEmbeddingHandler interface {
	Forward(ctx context.Context, text string) ([][]float64, error)
}

// TextEmbedding serves the embedding family.
type TextEmbedding struct {
	base
	handler TextEmbeddingHandler
}

// NewTextEmbedding wraps a handler with optional blacklist and priority
// hooks.
func NewTextEmbedding(handler TextEmbeddingHandler, opts ...Option) *TextEmbedding {
	return &TextEmbedding{
		base:    newBase(TextEmbeddingName, opts...),
		handler: handler,
	}
}

// RegisterRoutes mounts the forward route.
func (s *TextEmbedding) RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Post(RouteTextEmbeddingForward, s.handleForward(d))
}

type embeddingCall struct {
	env       *protocol.Envelope
	text      string
	embedding [][]float64
}

func (c *embeddingCall) Env() *protocol.Envelope { return c.env }

func (c *embeddingCall) InputShapes() []int { return []int{len(c.text)} }

func (c *embeddingCall) OutputShapes() []int {
	if c.env.Code() != protocol.CodeSuccess {
		return nil
	}
	rows := len(c.embedding)
	cols := 0
	if rows > 0 {
		cols = len(c.embedding[0])
	}
	return []int{rows, cols}
}

func (s *TextEmbedding) handleForward(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ForwardEmbeddingBody
		if !decodeBody(w, r, &body) {
			return
		}
		env, err := protocol.NewEnvelope(s.Name(), true, senderAddress(r), d.Receiver(), body.TimeoutDuration())
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		call := &embeddingCall{env: env, text: body.Text}
		d.Apply(r.Context(), s, call, func(ctx context.Context) error {
			embedding, err := s.handler.Forward(ctx, call.text)
			if err != nil {
				return err
			}
			call.embedding = embedding
			return nil
		})
		if env.Code() == protocol.CodeSuccess {
			body.Embedding = call.embedding
		}
		body.FillFrom(env)
		writeJSON(w, http.StatusOK, &body)
	}
}
