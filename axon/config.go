package axon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonahkesoyan/bittensor/admission"
	"github.com/jonahkesoyan/bittensor/peers"
)

// Defaults for the serving surface.
const (
	DefaultIP          = peers.UnroutableIP
	DefaultPort        = 8091
	DefaultFastAPIPort = 8092

	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// ErrInvalidPort rejects configured ports outside the open interval
// (1024, 65535).
var ErrInvalidPort = errors.New("port out of range")

// Config describes one serving node. The zero value plus a hotkey is a
// working local node: bind everything, default ports, default admission
// limits, no replay-ledger eviction.
type Config struct {
	// IP is the bind address. The default "0.0.0.0" binds every interface
	// but advertises the node as not serving; set ExternalIP (or a concrete
	// IP) for a dialable identity record.
	IP string

	// Port is the legacy transport port advertised in the identity record.
	// Nothing listens on it here; it travels for wire compatibility.
	Port int

	// FastAPIPort is the port the HTTP API listens on.
	FastAPIPort int

	// ExternalIP and ExternalPort, when set, replace IP and Port in the
	// identity record. ExternalFastAPIPort likewise replaces FastAPIPort as
	// the port peers dial.
	ExternalIP          string
	ExternalPort        int
	ExternalFastAPIPort int

	// Coldkey is the owner address advertised alongside the hotkey. Empty
	// means the hotkey address is advertised for both.
	Coldkey string

	// MaxWorkers bounds handler concurrency; MaxConcurrent is the hard
	// admission ceiling on queued plus running calls. Zero means the
	// admission defaults (10 and 400).
	MaxWorkers    int
	MaxConcurrent int

	// NonceTTL enables replay-ledger eviction: entries idle longer than the
	// TTL are dropped by a background sweep. Zero keeps every entry for the
	// life of the process.
	NonceTTL time.Duration

	// MetricsAddr starts a JSON metrics snapshot listener when set.
	MetricsAddr string

	// EnablePprof mounts the pprof API under /debug.
	EnablePprof bool

	// DrainDuration and GracefulShutdownDuration are passed through to the
	// HTTP chassis.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration

	// ReadTimeout and WriteTimeout bound request reads and response writes.
	// WriteTimeout must exceed the longest call timeout handlers accept.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Log is the structured logger. Nil means slog.Default().
	Log *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.IP == "" {
		c.IP = DefaultIP
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.FastAPIPort == 0 {
		c.FastAPIPort = DefaultFastAPIPort
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = admission.DefaultMaxWorkers
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = admission.DefaultMaxConcurrent
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Validate checks every configured port. Ports must lie strictly between
// 1024 and 65535; the external ports may be zero, meaning "same as the
// internal one".
func (c Config) Validate() error {
	ports := []struct {
		name     string
		value    int
		optional bool
	}{
		{"port", c.Port, false},
		{"fast api port", c.FastAPIPort, false},
		{"external port", c.ExternalPort, true},
		{"external fast api port", c.ExternalFastAPIPort, true},
	}
	for _, p := range ports {
		if p.optional && p.value == 0 {
			continue
		}
		if p.value <= 1024 || p.value >= 65535 {
			return fmt.Errorf("%w: %s %d must be between 1024 and 65535 exclusive", ErrInvalidPort, p.name, p.value)
		}
	}
	return nil
}
