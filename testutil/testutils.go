package testutil

import (
	"crypto/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/protocol"
)

// =====================================
// Crypto Generators
// =====================================

// GenerateRandomBytes generates a slice of random bytes with the specified length
func GenerateRandomBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// GenerateTestKeyPair generates a test key pair for testing
func GenerateTestKeyPair() (crypto.PublicKey, crypto.PrivateKey, error) {
	return crypto.GenerateKeyPair()
}

// GenerateTestAddress generates a fresh hotkey address for testing
func GenerateTestAddress() string {
	_, key, _ := crypto.GenerateKeyPair()
	return key.Address()
}

// =====================================
// Envelope Generators
// =====================================

// envelopeParams holds the inputs NewTestEnvelope feeds to the envelope
// constructor.
type envelopeParams struct {
	name      string
	isForward bool
	sender    string
	receiver  string
	timeout   time.Duration
}

// EnvelopeOption is a function that modifies envelope construction inputs
type EnvelopeOption func(*envelopeParams)

// WithName sets the operation name for an envelope
func WithName(name string) EnvelopeOption {
	return func(p *envelopeParams) {
		p.name = name
	}
}

// WithBackward marks the envelope as a backward (feedback) call
func WithBackward() EnvelopeOption {
	return func(p *envelopeParams) {
		p.isForward = false
	}
}

// WithSender sets the sender address for an envelope
func WithSender(sender string) EnvelopeOption {
	return func(p *envelopeParams) {
		p.sender = sender
	}
}

// WithReceiver sets the receiver address for an envelope
func WithReceiver(receiver string) EnvelopeOption {
	return func(p *envelopeParams) {
		p.receiver = receiver
	}
}

// WithTimeout sets the call timeout for an envelope
func WithTimeout(timeout time.Duration) EnvelopeOption {
	return func(p *envelopeParams) {
		p.timeout = timeout
	}
}

// NewTestEnvelope creates a fresh call envelope with default values that
// can be customized using options
func NewTestEnvelope(options ...EnvelopeOption) *protocol.Envelope {
	p := envelopeParams{
		name:      "text_to_completion",
		isForward: true,
		sender:    "a1b2c3d4e5f60718",
		receiver:  "f00dfeedd00dc0de",
		timeout:   12 * time.Second,
	}

	for _, option := range options {
		option(&p)
	}

	env, _ := protocol.NewEnvelope(p.name, p.isForward, p.sender, p.receiver, p.timeout)
	return env
}

// =====================================
// Request Signing
// =====================================

// signedRequestParams holds the auth header inputs for SignRequest.
type signedRequestParams struct {
	nonce   uint64
	session string
	version int
}

// SignedRequestOption is a function that modifies request signing inputs
type SignedRequestOption func(*signedRequestParams)

// WithNonce sets the request nonce
func WithNonce(nonce uint64) SignedRequestOption {
	return func(p *signedRequestParams) {
		p.nonce = nonce
	}
}

// WithSession sets the caller session identifier
func WithSession(session string) SignedRequestOption {
	return func(p *signedRequestParams) {
		p.session = session
	}
}

// WithVersion sets the advertised protocol version
func WithVersion(version int) SignedRequestOption {
	return func(p *signedRequestParams) {
		p.version = version
	}
}

// SignRequest attaches the full outbound header set to req: the signature
// header for receiver, the version header and the transport auth marker.
// The sender address is derived from the key.
func SignRequest(req *http.Request, key crypto.PrivateKey, receiver string, options ...SignedRequestOption) error {
	p := signedRequestParams{
		nonce:   uint64(time.Now().UnixNano()),
		session: "746573742d73657373",
		version: protocol.VersionAsInt,
	}

	for _, option := range options {
		option(&p)
	}

	header, err := protocol.SignAuthHeader(key, p.nonce, key.Address(), receiver, p.session)
	if err != nil {
		return err
	}

	req.Header.Set(protocol.SignatureHeader, header)
	req.Header.Set(protocol.VersionHeader, strconv.Itoa(p.version))
	req.Header.Set(protocol.RPCAuthHeader, protocol.RPCAuthValue)
	return nil
}

// =====================================
// Identity Record Generators
// =====================================

// NodeOption is a function that modifies a NodeInfo
type NodeOption func(*peers.NodeInfo)

// WithNodeIP sets the record's serving address
func WithNodeIP(ip string) NodeOption {
	return func(node *peers.NodeInfo) {
		node.IP = ip
		node.IPType = peers.IPVersion(ip)
	}
}

// WithNodeHotkey sets the record's hotkey address
func WithNodeHotkey(hotkey string) NodeOption {
	return func(node *peers.NodeInfo) {
		node.Hotkey = hotkey
	}
}

// WithNodeAPIPort sets the port peers dial
func WithNodeAPIPort(port int) NodeOption {
	return func(node *peers.NodeInfo) {
		node.FastAPIPort = port
		node.ExternalFastAPIPort = port
	}
}

// NewTestNode creates a routable identity record with default values that
// can be customized using options
func NewTestNode(options ...NodeOption) peers.NodeInfo {
	node := peers.NodeInfo{
		Version:             protocol.VersionAsInt,
		IP:                  "198.51.100.4",
		Port:                8091,
		IPType:              4,
		Hotkey:              GenerateTestAddress(),
		Protocol:            peers.ProtocolNumber,
		FastAPIPort:         8092,
		ExternalFastAPIPort: 8092,
	}

	for _, option := range options {
		option(&node)
	}
	if node.Coldkey == "" {
		node.Coldkey = node.Hotkey
	}

	return node
}
