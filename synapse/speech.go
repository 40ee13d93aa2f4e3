package synapse

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// RouteTextToSpeechForward is the wire path of the speech family.
const RouteTextToSpeechForward = "/TextToSpeech/Forward/"

// TextToSpeechName labels the family in envelopes and rpc logs.
const TextToSpeechName = "text_to_speech"

// ForwardSpeechBody is the wire body of a speech synthesis exchange. The
// speech field is raw audio, base64-encoded by the JSON codec.
type ForwardSpeechBody struct {
	CallBody
	Text   string `json:"text"`
	Speech []byte `json:"speech"`
}

// TextToSpeechHandler renders audio for a text.
type TextToSpeechHandler interface {
	Forward(ctx context.Context, text string) ([]byte, error)
}

// TextToSpeech serves the speech synthesis family.
type TextToSpeech struct {
	base
	handler TextToSpeechHandler
}

// NewTextToSpeech wraps a handler with optional blacklist and priority
// hooks.
func NewTextToSpeech(handler TextToSpeechHandler, opts ...Option) *TextToSpeech {
	return &TextToSpeech{
		base:    newBase(TextToSpeechName, opts...),
		handler: handler,
	}
}

// RegisterRoutes mounts the forward route.
func (s *TextToSpeech) RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Post(RouteTextToSpeechForward, s.handleForward(d))
}

type speechCall struct {
	env    *protocol.Envelope
	text   string
	speech []byte
}

func (c *speechCall) Env() *protocol.Envelope { return c.env }

func (c *speechCall) InputShapes() []int { return []int{len(c.text)} }

func (c *speechCall) OutputShapes() []int {
	if c.env.Code() != protocol.CodeSuccess {
		return nil
	}
	return []int{len(c.speech)}
}

func (s *TextToSpeech) handleForward(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ForwardSpeechBody
		if !decodeBody(w, r, &body) {
			return
		}
		env, err := protocol.NewEnvelope(s.Name(), true, senderAddress(r), d.Receiver(), body.TimeoutDuration())
		if err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		call := &speechCall{env: env, text: body.Text}
		d.Apply(r.Context(), s, call, func(ctx context.Context) error {
			speech, err := s.handler.Forward(ctx, call.text)
			if err != nil {
				return err
			}
			call.speech = speech
			return nil
		})
		if env.Code() == protocol.CodeSuccess {
			body.Speech = call.speech
		}
		body.FillFrom(env)
		writeJSON(w, http.StatusOK, &body)
	}
}
