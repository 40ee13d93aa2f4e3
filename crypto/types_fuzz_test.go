package crypto

import (
	"bytes"
	"testing"
)

func FuzzSignVerify(f *testing.F) {
	// Add seed corpus
	f.Add([]byte{})                          // Empty message
	f.Add([]byte("1.aa.bb.session"))         // Canonical auth message shape
	f.Add([]byte("32.deadbeef.cafe.0f0f0f")) // Larger nonce
	f.Add(make([]byte, 1000))                // Large message

	f.Fuzz(func(t *testing.T, data []byte) {
		pubKey, privKey, err := GenerateKeyPair()
		if err != nil {
			t.Fatalf("failed to generate key pair: %v", err)
		}

		signature, err := Sign(privKey, data)
		if err != nil {
			t.Fatalf("signing failed: %v", err)
		}

		// Invariant 1: Signature has correct length (Ed25519 = 64 bytes)
		if len(signature) != 64 {
			t.Errorf("signature wrong length: got %d, want 64", len(signature))
		}

		// Invariant 2: Signature verifies with correct public key
		if !signature.Verify(pubKey, data) {
			t.Error("signature verification failed with correct key")
		}

		// Invariant 3: Signature fails with wrong public key
		wrongPubKey, _, _ := GenerateKeyPair()
		if signature.Verify(wrongPubKey, data) {
			t.Error("signature should not verify with wrong public key")
		}

		// Invariant 4: Modified data fails verification
		if len(data) > 0 {
			modifiedData := make([]byte, len(data))
			copy(modifiedData, data)
			modifiedData[0] ^= 0xFF
			if signature.Verify(pubKey, modifiedData) {
				t.Error("signature should not verify with modified data")
			}
		}

		// Invariant 5: Modified signature fails verification
		modifiedSig := make(Signature, len(signature))
		copy(modifiedSig, signature)
		modifiedSig[0] ^= 0xFF
		if modifiedSig.Verify(pubKey, data) {
			t.Error("modified signature should not verify")
		}

		// Invariant 6: Determinism, signing the same data twice gives the same signature
		signature2, _ := Sign(privKey, data)
		if !bytes.Equal(signature, signature2) {
			t.Error("signing is not deterministic")
		}

		// Invariant 7: Hex round trip, with and without the wire's 0x prefix
		fromPlain, err := NewSignatureFromString(signature.String())
		if err != nil || !bytes.Equal(fromPlain, signature) {
			t.Errorf("hex round trip failed: %v", err)
		}
		fromPrefixed, err := NewSignatureFromString("0x" + signature.String())
		if err != nil || !bytes.Equal(fromPrefixed, signature) {
			t.Errorf("0x-prefixed round trip failed: %v", err)
		}
	})
}

func TestPublicKeyParsing(t *testing.T) {
	pubKey, privKey, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	parsed, err := NewPublicKeyFromString(pubKey.String())
	if err != nil {
		t.Fatalf("failed to parse address: %v", err)
	}
	if !parsed.Equal(pubKey) {
		t.Error("parsed key does not equal original")
	}

	derived, err := privKey.PublicKey()
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	if !derived.Equal(pubKey) {
		t.Error("derived public key does not equal generated one")
	}
	if privKey.Address() != pubKey.String() {
		t.Error("address does not match public key hex")
	}

	if _, err := NewPublicKeyFromString("zz"); err == nil {
		t.Error("expected error for non-hex input")
	}
	if _, err := NewPublicKeyFromString("deadbeef"); err == nil {
		t.Error("expected error for truncated key material")
	}
	if _, err := NewSignatureFromString("0xdeadbeef"); err == nil {
		t.Error("expected error for truncated signature material")
	}
}
