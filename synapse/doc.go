// Package synapse implements the server-side operations an axon serves and
// the dispatcher that runs them.
//
// A synapse is one operation family (text completion, embedding, speech)
// with the capability set the dispatcher needs: a routing name, a
// blacklist predicate and a priority function. The operator supplies the
// application logic as a small handler interface and may attach gating
// hooks at construction:
//
//	syn := synapse.NewTextCompletion(miner,
//	    synapse.WithBlacklist(func(call synapse.Call) (bool, string) {
//	        if banned[call.Env().Sender()] {
//	            return true, "sender is banned"
//	        }
//	        return false, ""
//	    }),
//	    synapse.WithPriority(func(call synapse.Call) float64 {
//	        return stake[call.Env().Sender()]
//	    }),
//	)
//
// # Dispatch pipeline
//
// Every request that reaches a synapse route has already passed the axon's
// auth middleware. The dispatcher then applies, in order: the blacklist
// predicate, the priority function, admission into the bounded queue,
// and the wait for the handler's future capped by the envelope deadline.
// Each outcome maps to exactly one return code, and the envelope is
// finalized and logged on every path.
//
// Handlers run on the admission queue's workers. A handler that outlives
// the caller's deadline is abandoned, not killed; concrete calls therefore
// publish their outputs only after a success resolution, so late writes
// can never race the HTTP response.
package synapse
