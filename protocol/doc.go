// Package protocol implements the request/response protocol shared by axons
// (servers) and dendrites (clients): the call envelope, the return-code
// taxonomy, the canonical signing scheme and the replay ledger.
//
// # Authentication
//
// Every request carries two headers. The version header holds the sender's
// protocol version as an integer and is checked against VersionFloor before
// anything else. The signature header holds four dot-separated fields:
//
//	<nonce>.<senderAddress>.<0x-prefixed signature hex>.<sessionId>
//
// The signature covers the canonical message
//
//	<nonce>.<senderAddress>.<receiverAddress>.<sessionId>
//
// so a signature minted for one receiver can never be replayed against
// another. Both sides must reproduce the formatting byte for byte: decimal
// nonce, no padding, single dots.
//
// # Replay defense
//
// Nonces are strictly increasing per (sender, session). The NonceLedger
// records the last accepted nonce for each pair; CheckAndAdvance compares
// and stores under one lock, so two copies of the same signed request can
// never both be admitted. A nonce equal to the stored value is a replay.
//
// # Envelopes
//
// An Envelope carries the metadata of one exchange: operation name,
// forward/backward direction, both identities, the caller's timeout, timing
// instrumentation and the (code, message) outcome. The code starts at
// CodeSuccess and is only ever downgraded; after Finalize the outcome is
// frozen. Envelopes are never shared between goroutines.
package protocol
