package axon

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"

	"github.com/jonahkesoyan/bittensor/admission"
	"github.com/jonahkesoyan/bittensor/api/httpserver"
	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/metrics"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/protocol"
	"github.com/jonahkesoyan/bittensor/synapse"
)

// Axon is one serving node: an authenticated HTTP surface for the synapses
// attached to it, an unauthenticated identity descriptor at the root, and
// the shared dispatch pipeline behind both.
type Axon struct {
	cfg     Config
	log     *slog.Logger
	address string

	ledger     *protocol.NonceLedger
	verifier   *protocol.Verifier
	queue      *admission.Queue
	dispatcher *synapse.Dispatcher
	metrics    *metrics.Metrics
	synapses   []synapse.Registrar

	srv       *httpserver.BaseServer
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates an axon serving as the identity of the given hotkey. The
// config is validated after defaults are applied.
func New(cfg Config, hotkey crypto.PrivateKey) (*Axon, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := hotkey.PublicKey(); err != nil {
		return nil, err
	}
	address := hotkey.Address()

	var ledgerOpts []protocol.LedgerOption
	if cfg.NonceTTL > 0 {
		ledgerOpts = append(ledgerOpts, protocol.WithTTL(cfg.NonceTTL))
	}
	ledger := protocol.NewNonceLedger(ledgerOpts...)

	queue := admission.New(admission.Config{
		MaxWorkers:    cfg.MaxWorkers,
		MaxConcurrent: cfg.MaxConcurrent,
		Log:           cfg.Log,
	})
	m := metrics.New()

	return &Axon{
		cfg:        cfg,
		log:        cfg.Log,
		address:    address,
		ledger:     ledger,
		verifier:   protocol.NewVerifier(address, ledger),
		queue:      queue,
		dispatcher: synapse.NewDispatcher(address, queue, cfg.Log, m),
		metrics:    m,
	}, nil
}

// Address returns the hotkey address requests must be signed against.
func (a *Axon) Address() string { return a.address }

// Attach mounts a synapse on the authenticated surface. Attach before
// Start; later attachments are not picked up by a running server. Returns
// the axon so attachments chain.
func (a *Axon) Attach(syn synapse.Registrar) *Axon {
	a.synapses = append(a.synapses, syn)
	a.log.Info("synapse attached", "synapse", syn.Name())
	return a
}

// NodeInfo assembles the identity record this axon advertises. External
// address fields take precedence over the bind fields when set.
func (a *Axon) NodeInfo() peers.NodeInfo {
	ip := a.cfg.IP
	if a.cfg.ExternalIP != "" {
		ip = a.cfg.ExternalIP
	}
	port := a.cfg.Port
	if a.cfg.ExternalPort != 0 {
		port = a.cfg.ExternalPort
	}
	externalAPIPort := a.cfg.ExternalFastAPIPort
	if externalAPIPort == 0 {
		externalAPIPort = a.cfg.FastAPIPort
	}
	coldkey := a.cfg.Coldkey
	if coldkey == "" {
		coldkey = a.address
	}
	return peers.NodeInfo{
		Version:             protocol.VersionAsInt,
		IP:                  ip,
		Port:                port,
		IPType:              peers.IPVersion(ip),
		Hotkey:              a.address,
		Coldkey:             coldkey,
		Protocol:            peers.ProtocolNumber,
		FastAPIPort:         a.cfg.FastAPIPort,
		ExternalFastAPIPort: externalAPIPort,
	}
}

// RegisterRoutes mounts the authenticated synapse routes and the identity
// descriptor. Implements httpserver.RouteRegistrar.
func (a *Axon) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(a.httpLogger)
		r.Use(a.authenticate)
		for _, syn := range a.synapses {
			syn.RegisterRoutes(r, a.dispatcher)
		}
	})
	r.With(a.httpLogger).Get("/", a.handleNodeInfo)
	r.With(a.httpLogger).Post("/", a.handleNodeInfo)
}

func (a *Axon) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(a.log, next)
}

// authenticate verifies the two auth headers before any synapse handler
// runs. Failures answer with the protocol's status and detail body; the
// request never reaches the dispatcher.
func (a *Axon) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, err := a.verifier.VerifyRequest(
			r.Header.Get(protocol.SignatureHeader),
			r.Header.Get(protocol.VersionHeader),
		)
		if err != nil {
			a.metrics.ObserveAuthRejected()
			a.log.Warn("request rejected",
				"err", err,
				"path", r.URL.Path,
				"remoteAddress", r.RemoteAddr,
			)
			writeDetail(w, protocol.HTTPStatus(err), err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(protocol.ContextWithAuthTag(r.Context(), tag)))
	})
}

// handleNodeInfo serves the identity descriptor. Peers fetch it before
// signing anything, so it is deliberately unauthenticated.
func (a *Axon) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(a.NodeInfo())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// Handler returns the full routing surface without starting a listener.
func (a *Axon) Handler() http.Handler {
	r := chi.NewRouter()
	a.RegisterRoutes(r)
	return r
}

// ListenAddr returns the bind address of the HTTP API.
func (a *Axon) ListenAddr() string {
	return net.JoinHostPort(a.cfg.IP, strconv.Itoa(a.cfg.FastAPIPort))
}

// Start brings up the HTTP surface in the background and, when a nonce TTL
// is configured, the ledger sweeper with it.
func (a *Axon) Start() {
	a.srv = httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               a.ListenAddr(),
		MetricsAddr:              a.cfg.MetricsAddr,
		Metrics:                  a.metrics,
		EnablePprof:              a.cfg.EnablePprof,
		Log:                      a.log,
		DrainDuration:            a.cfg.DrainDuration,
		GracefulShutdownDuration: a.cfg.GracefulShutdownDuration,
		ReadTimeout:              a.cfg.ReadTimeout,
		WriteTimeout:             a.cfg.WriteTimeout,
	}, a)
	a.srv.RunInBackground()

	if ttl := a.ledger.TTL(); ttl > 0 {
		a.startSweeper(ttl)
	}

	a.log.Info("axon started",
		"listenAddress", a.ListenAddr(),
		"hotkey", protocol.ShortAddress(a.address),
		"synapses", len(a.synapses),
	)
}

// startSweeper evicts replay-ledger entries idle longer than the TTL. The
// sweep interval is half the TTL, floored at one second.
func (a *Axon) startSweeper(ttl time.Duration) {
	a.sweepStop = make(chan struct{})
	a.sweepDone = make(chan struct{})

	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		defer close(a.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := a.ledger.EvictBefore(time.Now().Add(-ttl)); n > 0 {
					a.log.Debug("evicted replay ledger entries", "count", n)
				}
			case <-a.sweepStop:
				return
			}
		}
	}()
}

// Shutdown drains the HTTP surface, then the admission queue. Requests in
// flight get the configured graceful window; queued tasks resolve with the
// queue's closed error.
func (a *Axon) Shutdown() {
	if a.sweepStop != nil {
		close(a.sweepStop)
		<-a.sweepDone
	}
	if a.srv != nil {
		a.srv.Shutdown()
	}
	a.queue.Close()
	a.log.Info("axon stopped")
}
