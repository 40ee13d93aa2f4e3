// Package axon implements the serving side of the RPC layer: one node that
// authenticates inbound calls, dispatches them through a bounded admission
// queue, and advertises its identity for discovery.
//
// # Request path
//
// Every synapse route sits behind the authentication middleware. A request
// is rejected with 400/403 and a {"detail": ...} body before any handler
// runs unless its signature header parses, its version meets the floor, its
// nonce advances the replay ledger and its signature verifies against this
// axon's address. Authenticated requests flow through the shared dispatcher:
// blacklist, priority, admission queue, outcome mapping onto the envelope.
//
// # Identity
//
// GET or POST on the bare root returns the node's identity record without
// authentication; peers fetch it to learn the address and version to sign
// against before their first real call.
//
// # Usage
//
//	ax, err := axon.New(axon.Config{FastAPIPort: 8092}, hotkey)
//	if err != nil {
//		return err
//	}
//	ax.Attach(synapse.NewTextCompletion(miner))
//	ax.Start()
//	defer ax.Shutdown()
package axon
