package peers

import (
	"encoding/json"
	"errors"

	"github.com/jonahkesoyan/bittensor/crypto"
)

var (
	// ErrBadAnnouncementSignature rejects announcements whose signature does
	// not verify.
	ErrBadAnnouncementSignature = errors.New("announcement signature not valid")
	// ErrHotkeyMismatch rejects announcements signed by a key other than the
	// record's own hotkey.
	ErrHotkeyMismatch = errors.New("announcement signer does not match hotkey")
)

// SignedAnnouncement authenticates one identity record. The signature
// covers the serialized record plus the signer's public key, so neither can
// be swapped, and only the hotkey itself can announce its record.
type SignedAnnouncement struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
	Node      *NodeInfo        `json:"node"`
}

// NewSignedAnnouncement signs an identity record with its hotkey.
func NewSignedAnnouncement(key crypto.PrivateKey, node NodeInfo) (*SignedAnnouncement, error) {
	pubkey, err := key.PublicKey()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(&node)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(key, append(payload, pubkey...))
	if err != nil {
		return nil, err
	}

	return &SignedAnnouncement{
		PublicKey: pubkey,
		Signature: signature,
		Node:      &node,
	}, nil
}

// Recover verifies the signature and the signer's claim to the record's
// hotkey, returning the record.
func (s *SignedAnnouncement) Recover() (*NodeInfo, error) {
	if s.Node == nil {
		return nil, ErrBadAnnouncementSignature
	}

	payload, err := json.Marshal(s.Node)
	if err != nil {
		return nil, err
	}

	if !s.Signature.Verify(s.PublicKey, append(payload, s.PublicKey...)) {
		return nil, ErrBadAnnouncementSignature
	}
	if s.PublicKey.String() != s.Node.Hotkey {
		return nil, ErrHotkeyMismatch
	}

	return s.Node, nil
}
