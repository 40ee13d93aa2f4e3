// Package crypto provides the identity keypair primitives for the RPC layer.
//
// Every network participant is identified by an Ed25519 keypair. The hex
// encoding of the public key is the participant's address (its "hotkey"):
// it appears in signature headers, identity descriptors and log lines, and
// it is the key under which replay state is tracked.
//
// The package exposes a deliberately small capability surface:
//
//   - GenerateKeyPair: mint a new identity
//   - Sign: produce a detached signature over a canonical message
//   - Signature.Verify: check a signature against an address
//
// Higher layers never touch raw Ed25519 types; they consume PublicKey,
// PrivateKey and Signature, all of which carry hex parsing and formatting
// helpers matching the wire protocol (signature fields travel as
// 0x-prefixed hex, addresses as bare hex).
package crypto
