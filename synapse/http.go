package synapse

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonahkesoyan/bittensor/protocol"
)

// Registrar is implemented by synapses that mount their routes on an
// axon's authenticated router. The axon passes its dispatcher so every
// operation shares one admission queue and one rpc log.
type Registrar interface {
	Synapse
	RegisterRoutes(r chi.Router, d *Dispatcher)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the protocol's error body shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decodeBody parses the request JSON into v. On failure it answers 400
// with a detail body and reports false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// senderAddress returns the authenticated sender of the request. Routes
// are only reachable through the auth middleware, so a missing tag means a
// wiring bug; the empty address keeps the pipeline observable instead of
// panicking.
func senderAddress(r *http.Request) string {
	tag, ok := protocol.AuthTagFromContext(r.Context())
	if !ok {
		return ""
	}
	return tag.Sender
}
