package dendrite

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/protocol"
)

// nonceSource issues strictly increasing nonces. Values start from the wall
// clock in nanoseconds and never repeat, even when two goroutines draw
// within the same nanosecond.
type nonceSource struct {
	last atomic.Uint64
}

func (n *nonceSource) Next() uint64 {
	for {
		next := uint64(time.Now().UnixNano())
		last := n.last.Load()
		if next <= last {
			next = last + 1
		}
		if n.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// newSessionID draws the opaque session identifier scoping this instance's
// nonce sequence on the receiving side.
func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Dendrite is the calling side of the RPC layer: it signs outbound calls as
// one identity and applies the response onto the call's envelope. Safe for
// concurrent use.
type Dendrite struct {
	key     crypto.PrivateKey
	address string
	session string
	nonces  nonceSource
	client  *http.Client
	log     *slog.Logger
}

// Option configures a Dendrite at construction time.
type Option func(*Dendrite)

// WithHTTPClient replaces the transport. The client's own Timeout should
// stay zero; per-call deadlines come from the envelope.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dendrite) { d.client = client }
}

// WithLogger replaces the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dendrite) { d.log = log }
}

// New creates a dendrite calling as the given hotkey. Every instance gets a
// fresh session identifier, so its nonce sequence is independent of any
// previous process.
func New(key crypto.PrivateKey, opts ...Option) (*Dendrite, error) {
	if _, err := key.PublicKey(); err != nil {
		return nil, err
	}
	session, err := newSessionID()
	if err != nil {
		return nil, err
	}
	d := &Dendrite{
		key:     key,
		address: key.Address(),
		session: session,
		client:  &http.Client{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Address returns the hotkey address calls are signed with.
func (d *Dendrite) Address() string { return d.address }

// Session returns this instance's session identifier.
func (d *Dendrite) Session() string { return d.session }

// Apply sends one call to the target and folds the outcome into a fresh
// envelope, which is always finalized on return:
//
//	200 with a success body        -> the server's return code (Success,
//	                                  Timeout, Blacklisted, Overloaded, ...)
//	deadline fired                 -> Timeout
//	transport or protocol failure  -> UnknownError with the failure detail
//
// The returned error is non-nil only when no envelope could be built at
// all, which means the call itself is malformed.
func (d *Dendrite) Apply(ctx context.Context, target peers.NodeInfo, call Call) (*protocol.Envelope, error) {
	e, err := protocol.NewEnvelope(call.Name(), call.IsForward(), d.address, target.Hotkey, call.Timeout())
	if err != nil {
		return nil, err
	}

	protocol.LogRPC(d.log, false, false, e, call.InputShapes(), nil)
	defer func() {
		e.Finalize()
		protocol.LogRPC(d.log, false, true, e, call.InputShapes(), call.OutputShapes())
	}()

	d.send(ctx, target, call, e)
	return e, nil
}

func (d *Dendrite) send(ctx context.Context, target peers.NodeInfo, call Call, e *protocol.Envelope) {
	payload, err := json.Marshal(call.RequestBody())
	if err != nil {
		e.Resolve(protocol.CodeUnknownError, "request serialization failed: "+err.Error())
		return
	}

	ctx, cancel := context.WithDeadline(ctx, e.Deadline())
	defer cancel()

	url := strings.TrimRight(target.URL(), "/") + call.Route()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		e.Resolve(protocol.CodeUnknownError, "request construction failed: "+err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if err := d.signRequest(req, target.Hotkey); err != nil {
		e.Resolve(protocol.CodeUnknownError, "request signing failed: "+err.Error())
		return
	}

	resp, err := d.client.Do(req)
	if err != nil {
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			e.Resolve(protocol.CodeTimeout, fmt.Sprintf("timeout after %gs", e.Timeout().Seconds()))
			return
		}
		e.Resolve(protocol.CodeUnknownError, fmt.Sprintf("request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.Resolve(protocol.CodeUnknownError, "response read failed: "+err.Error())
		return
	}

	if resp.StatusCode != http.StatusOK {
		detail := detailFrom(body, http.StatusText(resp.StatusCode))
		e.Resolve(protocol.CodeUnknownError, fmt.Sprintf("http %d: %s", resp.StatusCode, detail))
		return
	}

	if err := call.ApplyResponse(body); err != nil {
		e.Resolve(protocol.CodeUnknownError, "response deserialization failed: "+err.Error())
		return
	}

	code, message := call.Outcome()
	if code == protocol.CodeNoReturn {
		e.Resolve(protocol.CodeUnknownError, "response missing return code")
		return
	}
	e.Resolve(code, message)
}

// signRequest stamps the three outbound headers: version, signature over
// the canonical message for this receiver, and the rpc-auth tag.
func (d *Dendrite) signRequest(req *http.Request, receiver string) error {
	header, err := protocol.SignAuthHeader(d.key, d.nonces.Next(), d.address, receiver, d.session)
	if err != nil {
		return err
	}
	req.Header.Set(protocol.SignatureHeader, header)
	req.Header.Set(protocol.VersionHeader, strconv.Itoa(protocol.VersionAsInt))
	req.Header.Set(protocol.RPCAuthHeader, protocol.RPCAuthValue)
	return nil
}

// detailFrom extracts the "detail" field of an error body, falling back to
// the given text when the body carries none.
func detailFrom(body []byte, fallback string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return fallback
}
