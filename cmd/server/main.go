// Command server runs a standalone serving node.
//
// The node exposes the signed RPC surface (text completion, embedding and
// speech routes) behind replay-protected authentication, plus the
// unauthenticated identity descriptor on GET /. A built-in demo handler
// answers calls; real deployments replace it by embedding the axon package.
//
// # Configuration File
//
// Create a YAML file with node settings:
//
//	axon:
//	  ip: "0.0.0.0"
//	  port: 8091
//	  fast_api_port: 8092
//	  external_ip: "203.0.113.7"
//	  max_workers: 10
//	  max_concurrent: 400
//	  nonce_ttl: 1h
//	miner:
//	  completion_prefix: "echo: "
//	  embedding_dim: 64
//	  blacklist: ["badc0ffee..."]
//	  priorities:
//	    f00dfeed...: 5.0
//	directory:
//	  url: "http://localhost:8080"
//	  reannounce_every: 5m
//	log:
//	  level: info
//	  format: text
//	  file: /var/log/node/server.log
//
// # Usage
//
//	go run ./cmd/server --config=server.yaml
//	go run ./cmd/server --external-ip=203.0.113.7 --hotkey-file=hotkey.hex
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonahkesoyan/bittensor/axon"
	"github.com/jonahkesoyan/bittensor/cmd/common"
	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/synapse"
)

type serverConfig struct {
	Axon struct {
		IP                  string        `yaml:"ip"`
		Port                int           `yaml:"port"`
		FastAPIPort         int           `yaml:"fast_api_port"`
		ExternalIP          string        `yaml:"external_ip"`
		ExternalPort        int           `yaml:"external_port"`
		ExternalFastAPIPort int           `yaml:"external_fast_api_port"`
		Coldkey             string        `yaml:"coldkey"`
		MaxWorkers          int           `yaml:"max_workers"`
		MaxConcurrent       int           `yaml:"max_concurrent"`
		NonceTTL            time.Duration `yaml:"nonce_ttl"`
		MetricsAddr         string        `yaml:"metrics_addr"`
		EnablePprof         bool          `yaml:"enable_pprof"`
	} `yaml:"axon"`

	Miner minerConfig `yaml:"miner"`

	Directory struct {
		URL             string        `yaml:"url"`
		ReannounceEvery time.Duration `yaml:"reannounce_every"`
	} `yaml:"directory"`

	Log common.LogConfig `yaml:"log"`
}

func main() {
	var (
		configPath      = flag.String("config", "", "Path to YAML config file")
		ip              = flag.String("ip", "", "Bind address")
		port            = flag.Int("port", 0, "Advertised legacy transport port")
		apiPort         = flag.Int("api-port", 0, "HTTP API listen port")
		externalIP      = flag.String("external-ip", "", "Advertised external IP")
		externalAPIPort = flag.Int("external-api-port", 0, "Advertised external API port")
		coldkey         = flag.String("coldkey", "", "Advertised coldkey address")
		hotkeyHex       = flag.String("hotkey", "", "Ed25519 hotkey (hex, generates if empty)")
		hotkeyFile      = flag.String("hotkey-file", "", "Path for hotkey persistence")
		directoryURL    = flag.String("directory", "", "Peer directory URL to announce to")
		metricsAddr     = flag.String("metrics-addr", "", "Metrics snapshot listen address")
		enablePprof     = flag.Bool("pprof", false, "Mount pprof under /debug")
		nonceTTL        = flag.Duration("nonce-ttl", 0, "Replay ledger eviction TTL (0 keeps entries forever)")
		logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logFile         = flag.String("log-file", "", "Rotating log file path")
	)
	flag.Parse()

	cfg := &serverConfig{}
	if *configPath != "" {
		if err := common.LoadYAML(*configPath, cfg); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	applyFlagOverrides(cfg, *ip, *port, *apiPort, *externalIP, *externalAPIPort,
		*coldkey, *directoryURL, *metricsAddr, *enablePprof, *nonceTTL, *logLevel, *logFile)

	log := cfg.Log.Logger()

	hotkey, err := common.LoadOrGenerateKey(*hotkeyHex, *hotkeyFile)
	if err != nil {
		fmt.Printf("Hotkey error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, hotkey, log); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func applyFlagOverrides(cfg *serverConfig, ip string, port, apiPort int,
	externalIP string, externalAPIPort int, coldkey, directoryURL, metricsAddr string,
	enablePprof bool, nonceTTL time.Duration, logLevel, logFile string) {

	if ip != "" {
		cfg.Axon.IP = ip
	}
	if port != 0 {
		cfg.Axon.Port = port
	}
	if apiPort != 0 {
		cfg.Axon.FastAPIPort = apiPort
	}
	if externalIP != "" {
		cfg.Axon.ExternalIP = externalIP
	}
	if externalAPIPort != 0 {
		cfg.Axon.ExternalFastAPIPort = externalAPIPort
	}
	if coldkey != "" {
		cfg.Axon.Coldkey = coldkey
	}
	if directoryURL != "" {
		cfg.Directory.URL = directoryURL
	}
	if metricsAddr != "" {
		cfg.Axon.MetricsAddr = metricsAddr
	}
	if enablePprof {
		cfg.Axon.EnablePprof = true
	}
	if nonceTTL != 0 {
		cfg.Axon.NonceTTL = nonceTTL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
}

func run(cfg *serverConfig, hotkey crypto.PrivateKey, log *slog.Logger) error {
	ax, err := axon.New(axon.Config{
		IP:                  cfg.Axon.IP,
		Port:                cfg.Axon.Port,
		FastAPIPort:         cfg.Axon.FastAPIPort,
		ExternalIP:          cfg.Axon.ExternalIP,
		ExternalPort:        cfg.Axon.ExternalPort,
		ExternalFastAPIPort: cfg.Axon.ExternalFastAPIPort,
		Coldkey:             cfg.Axon.Coldkey,
		MaxWorkers:          cfg.Axon.MaxWorkers,
		MaxConcurrent:       cfg.Axon.MaxConcurrent,
		NonceTTL:            cfg.Axon.NonceTTL,
		MetricsAddr:         cfg.Axon.MetricsAddr,
		EnablePprof:         cfg.Axon.EnablePprof,
		Log:                 log,
	}, hotkey)
	if err != nil {
		return err
	}

	m := newMiner(cfg.Miner, log)
	opts := m.synapseOptions()
	ax.Attach(synapse.NewTextCompletion(m, opts...)).
		Attach(synapse.NewTextEmbedding(embeddingMiner{m}, opts...)).
		Attach(synapse.NewTextToSpeech(speechMiner{m}, opts...))

	ax.Start()
	log.Info("node up", "hotkey", ax.Address(), "listen", ax.ListenAddr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Directory.URL != "" {
		ann, err := peers.NewSignedAnnouncement(hotkey, ax.NodeInfo())
		if err != nil {
			ax.Shutdown()
			return fmt.Errorf("signing announcement: %w", err)
		}
		go announceLoop(ctx, peers.NewClient(cfg.Directory.URL, nil), ann, cfg.Directory.ReannounceEvery, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()
	ax.Shutdown()
	return nil
}

// announceLoop publishes the identity record, refreshes it periodically and
// withdraws it on shutdown.
func announceLoop(ctx context.Context, client *peers.Client, ann *peers.SignedAnnouncement, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		every = 5 * time.Minute
	}

	announce := func() {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Announce(callCtx, ann); err != nil {
			log.Warn("directory announce failed", "err", err)
			return
		}
		log.Info("announced to directory", "hotkey", ann.Node.Hotkey)
	}
	announce()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			withdrawCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Withdraw(withdrawCtx, ann); err != nil {
				log.Warn("directory withdraw failed", "err", err)
			}
			return
		case <-ticker.C:
			announce()
		}
	}
}
