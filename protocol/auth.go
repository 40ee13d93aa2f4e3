package protocol

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonahkesoyan/bittensor/crypto"
)

// Header names and values of the authentication surface. These are fixed by
// the wire protocol and shared with every other implementation.
const (
	// SignatureHeader carries "<nonce>.<sender>.<signatureHex>.<sessionId>".
	SignatureHeader = "bittensor-signature"
	// VersionHeader carries the sender's protocol version as an integer.
	VersionHeader = "bittensor-version"
	// RPCAuthHeader and RPCAuthValue tag outbound requests; receivers do not
	// check them but other tooling filters on them.
	RPCAuthHeader = "rpc-auth-header"
	RPCAuthValue  = "Bittensor"
)

// Authentication failures. The error strings double as the wire-visible
// "detail" fields of 400/403 responses, so they must stay byte-identical
// across implementations.
var (
	// ErrSignatureMissing: no signature header at all (400).
	ErrSignatureMissing = errors.New("Request signature missing")
	// ErrIncompatibleVersion: version header missing, unparseable or below
	// the floor (400).
	ErrIncompatibleVersion = errors.New("Incorrect Version")
	// ErrMalformedSignature: signature header present but not four
	// dot-separated fields with a decimal nonce and hex signature (400).
	ErrMalformedSignature = errors.New("Unknown signature format")
	// ErrNonceTooSmall: replay, the nonce does not advance the ledger (403).
	ErrNonceTooSmall = errors.New("Nonce is too small")
	// ErrSignatureMismatch: cryptographic verification failed (403).
	ErrSignatureMismatch = errors.New("Signature mismatch")
)

// HTTPStatus maps an authentication failure to its response status code:
// 403 for replay and cryptographic rejection, 400 for everything malformed.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrNonceTooSmall) || errors.Is(err, ErrSignatureMismatch) {
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}

// AuthTag is the parsed form of a signature header.
type AuthTag struct {
	Nonce     uint64
	Sender    string
	Signature crypto.Signature
	Session   string
}

// CanonicalMessage renders the exact byte sequence both sides sign and
// verify. The nonce is decimal with no padding; the four fields are joined
// by single dots in fixed order.
func CanonicalMessage(nonce uint64, sender, receiver, session string) string {
	return fmt.Sprintf("%d.%s.%s.%s", nonce, sender, receiver, session)
}

// SignAuthHeader produces the value of the signature header for one
// request. The signature field is hex with a 0x prefix; the surrounding
// fields travel verbatim.
func SignAuthHeader(key crypto.PrivateKey, nonce uint64, sender, receiver, session string) (string, error) {
	message := CanonicalMessage(nonce, sender, receiver, session)
	sig, err := crypto.Sign(key, []byte(message))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%s.0x%s.%s", nonce, sender, sig.String(), session), nil
}

// ParseAuthHeader splits a signature header into its AuthTag. Exactly four
// dot-separated fields are required; there is no partial parsing and no
// fallback format.
func ParseAuthHeader(header string) (*AuthTag, error) {
	parts := strings.Split(header, ".")
	if len(parts) != 4 {
		return nil, ErrMalformedSignature
	}
	nonce, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, ErrMalformedSignature
	}
	sig, err := crypto.NewSignatureFromString(parts[2])
	if err != nil {
		return nil, ErrMalformedSignature
	}
	return &AuthTag{
		Nonce:     nonce,
		Sender:    parts[1],
		Signature: sig,
		Session:   parts[3],
	}, nil
}

// Verifier checks inbound request authentication for one receiving
// identity. It owns the replay ledger; everything else it needs arrives
// with the request.
type Verifier struct {
	receiver string
	ledger   *NonceLedger
	floor    int
}

// NewVerifier creates a Verifier for the given receiver address backed by
// the given replay ledger.
func NewVerifier(receiver string, ledger *NonceLedger) *Verifier {
	return &Verifier{
		receiver: receiver,
		ledger:   ledger,
		floor:    VersionFloor,
	}
}

// Receiver returns the address requests must be signed against.
func (v *Verifier) Receiver() string { return v.receiver }

// VerifyRequest authenticates one request from its two auth headers,
// cheapest check first:
//
//  1. signature header present
//  2. version header parses and meets the floor
//  3. signature header has the right shape
//  4. nonce would advance the ledger (read-only pre-check)
//  5. the signature verifies against the sender address
//  6. the nonce still advances the ledger, atomically this time
//
// Step 4 only avoids signature verification for obvious replays; step 6 is
// the authoritative check, so two requests racing with the same nonce admit
// exactly one. The ledger entry is advanced before success is returned.
func (v *Verifier) VerifyRequest(signatureHeader, versionHeader string) (*AuthTag, error) {
	if signatureHeader == "" {
		return nil, ErrSignatureMissing
	}
	version, err := strconv.Atoi(versionHeader)
	if err != nil || version < v.floor {
		return nil, ErrIncompatibleVersion
	}
	tag, err := ParseAuthHeader(signatureHeader)
	if err != nil {
		return nil, err
	}
	if v.ledger.Stale(tag.Sender, tag.Session, tag.Nonce) {
		return nil, ErrNonceTooSmall
	}
	sender, err := crypto.NewPublicKeyFromString(tag.Sender)
	if err != nil {
		return nil, ErrSignatureMismatch
	}
	message := CanonicalMessage(tag.Nonce, tag.Sender, v.receiver, tag.Session)
	if !tag.Signature.Verify(sender, []byte(message)) {
		return nil, ErrSignatureMismatch
	}
	if !v.ledger.CheckAndAdvance(tag.Sender, tag.Session, tag.Nonce) {
		return nil, ErrNonceTooSmall
	}
	return tag, nil
}
