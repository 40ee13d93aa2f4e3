package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrInvalidKeySize is returned when key material has the wrong length for Ed25519.
	ErrInvalidKeySize = errors.New("invalid key size")
	// ErrInvalidSignatureSize is returned when signature material has the wrong length for Ed25519.
	ErrInvalidSignatureSize = errors.New("invalid signature size")
)

// PublicKey is the public half of a network identity keypair.
// Its hex encoding is the address peers use to name each other
// (the "hotkey" on the wire and in logs).
type PublicKey []byte

// NewPublicKeyFromBytes creates a PublicKey from a byte slice.
// The input is copied so later mutation of the slice cannot change the key.
func NewPublicKeyFromBytes(data []byte) (PublicKey, error) {
	if len(data) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeySize
	}
	pk := make([]byte, len(data))
	copy(pk, data)
	return PublicKey(pk), nil
}

// NewPublicKeyFromString creates a PublicKey from its hex address form.
func NewPublicKeyFromString(data string) (PublicKey, error) {
	rawBytes, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromBytes(rawBytes)
}

// Bytes returns the public key as a byte slice for cryptographic operations.
func (pk PublicKey) Bytes() []byte {
	return pk
}

// Equal compares two public keys in constant time.
func (pk PublicKey) Equal(other PublicKey) bool {
	return subtle.ConstantTimeCompare(pk, other) == 1
}

// String returns the hex address form of the public key.
// This is the identity string carried in signature headers, identity
// descriptors and log lines.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk)
}

// PrivateKey is the signing half of a network identity keypair.
// Private keys never travel over the wire; they only produce signatures.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
// The input is copied so later mutation of the slice cannot change the key.
func NewPrivateKeyFromBytes(data []byte) (PrivateKey, error) {
	if len(data) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk), nil
}

// Bytes returns the private key as a byte slice.
// This exposes sensitive key material and should only be used for
// persistence.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// PublicKey derives the public key corresponding to this private key.
// For Ed25519 the public key is the trailing half of the private key.
func (sk PrivateKey) PublicKey() (PublicKey, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	return PublicKey(sk[32:]), nil
}

// Address returns the hex address form of the corresponding public key,
// or the empty string when the private key is malformed.
func (sk PrivateKey) Address() string {
	pk, err := sk.PublicKey()
	if err != nil {
		return ""
	}
	return pk.String()
}

// GenerateKeyPair generates a new Ed25519 identity keypair.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PublicKey(publicKey), PrivateKey(privateKey), nil
}

// Signature is a detached Ed25519 signature over a canonical message.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
// The input is copied so later mutation of the slice cannot change the
// signature.
func NewSignature(data []byte) Signature {
	sig := make([]byte, len(data))
	copy(sig, data)
	return Signature(sig)
}

// NewSignatureFromString creates a Signature from its hex form.
// A leading "0x" is accepted, since signature header fields carry one.
func NewSignatureFromString(data string) (Signature, error) {
	rawBytes, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, err
	}
	if len(rawBytes) != ed25519.SignatureSize {
		return nil, ErrInvalidSignatureSize
	}
	return Signature(rawBytes), nil
}

// Bytes returns the signature as a byte slice for serialization.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// Verify reports whether this signature is valid for the given data and
// public key.
func (s Signature) Verify(publicKey PublicKey, data []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(s) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, s)
}

// String returns the hex form of the signature, without a 0x prefix.
func (s Signature) String() string {
	return hex.EncodeToString(s.Bytes())
}

// Sign signs data with the given private key using Ed25519.
// Signing is deterministic: the same key and data always produce the same
// signature.
func Sign(privateKey PrivateKey, data []byte) (Signature, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	signature := ed25519.Sign(ed25519.PrivateKey(privateKey), data)
	return Signature(signature), nil
}
