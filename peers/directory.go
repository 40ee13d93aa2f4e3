package peers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Directory serves the peer directory: nodes announce their signed identity
// records, anyone lists or fetches them. It stands in for an external
// registry where none is available; readers re-verify the stored signatures
// rather than trusting the directory.
type Directory struct {
	store Store
	log   *slog.Logger
}

// NewDirectory creates a directory over the given store.
func NewDirectory(store Store, log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{store: store, log: log}
}

// AnnounceResponse confirms a directory write.
type AnnounceResponse struct {
	Success bool   `json:"success"`
	Hotkey  string `json:"hotkey,omitempty"`
	Message string `json:"message,omitempty"`
}

// ListResponse carries every stored announcement.
type ListResponse struct {
	Nodes []*SignedAnnouncement `json:"nodes"`
}

// RegisterRoutes mounts the directory endpoints. Reads are CORS-open so
// dashboards can call them straight from a browser; writes carry their own
// signatures.
func (d *Directory) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Get("/nodes", d.handleList)
		r.Get("/nodes/{hotkey}", d.handleGet)
	})
	r.Post("/nodes", d.handleAnnounce)
	r.Delete("/nodes/{hotkey}", d.handleWithdraw)
}

func (d *Directory) handleAnnounce(w http.ResponseWriter, req *http.Request) {
	var ann SignedAnnouncement
	if err := json.NewDecoder(req.Body).Decode(&ann); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, err := ann.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid announcement: %w", err).Error(), http.StatusForbidden)
		return
	}

	if err := d.store.Save(&ann); err != nil {
		d.log.Error("saving announcement failed", "err", err, "hotkey", node.Hotkey)
		http.Error(w, "could not store announcement", http.StatusInternalServerError)
		return
	}

	d.log.Info("node announced", "hotkey", node.Hotkey, "ip", node.IP, "serving", node.IsServing())
	json.NewEncoder(w).Encode(&AnnounceResponse{
		Success: true,
		Hotkey:  node.Hotkey,
	})
}

func (d *Directory) handleList(w http.ResponseWriter, req *http.Request) {
	nodes, err := d.store.LoadAll()
	if err != nil {
		d.log.Error("listing nodes failed", "err", err)
		http.Error(w, "could not list nodes", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(&ListResponse{Nodes: nodes})
}

func (d *Directory) handleGet(w http.ResponseWriter, req *http.Request) {
	hotkey := chi.URLParam(req, "hotkey")

	ann, err := d.store.Load(hotkey)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "node not found", http.StatusNotFound)
		return
	}
	if err != nil {
		d.log.Error("loading node failed", "err", err, "hotkey", hotkey)
		http.Error(w, "could not load node", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(ann)
}

// handleWithdraw removes a record. The request body must carry a valid
// announcement for the same hotkey, so only the key owner can withdraw.
func (d *Directory) handleWithdraw(w http.ResponseWriter, req *http.Request) {
	hotkey := chi.URLParam(req, "hotkey")

	var ann SignedAnnouncement
	if err := json.NewDecoder(req.Body).Decode(&ann); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	node, err := ann.Recover()
	if err != nil {
		http.Error(w, fmt.Errorf("invalid announcement: %w", err).Error(), http.StatusForbidden)
		return
	}
	if node.Hotkey != hotkey {
		http.Error(w, "announcement does not match hotkey", http.StatusForbidden)
		return
	}

	if err := d.store.Delete(hotkey); err != nil {
		d.log.Error("deleting node failed", "err", err, "hotkey", hotkey)
		http.Error(w, "could not delete node", http.StatusInternalServerError)
		return
	}

	d.log.Info("node withdrawn", "hotkey", hotkey)
	json.NewEncoder(w).Encode(&AnnounceResponse{
		Success: true,
		Hotkey:  hotkey,
	})
}
