// Command directory runs a standalone peer directory service.
//
// The directory provides discovery for serving nodes: nodes announce their
// signed identity records, clients list or fetch them. Announcements are
// verified against the embedded hotkey before they are stored, and
// withdrawal requires the same signature, so the directory never needs to
// be trusted with keys.
//
// # Configuration File
//
// Create a YAML file with directory settings:
//
//	listen_addr: ":8080"
//	metrics_addr: ""
//	enable_pprof: false
//	store: memory
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: directory
//	  password: secret
//	  database: nodes
//	log:
//	  level: info
//	  format: json
//
// # Endpoints
//
//   - POST /nodes - Announce a signed identity record
//   - GET /nodes - List all records
//   - GET /nodes/{hotkey} - Fetch one record
//   - DELETE /nodes/{hotkey} - Withdraw a record (signed)
//   - GET /livez, /readyz, /drain, /undrain - Operational endpoints
//
// # Usage
//
//	go run ./cmd/directory --config=directory.yaml
//	go run ./cmd/directory --addr=:8080 --store=memory
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonahkesoyan/bittensor/api/httpserver"
	"github.com/jonahkesoyan/bittensor/cmd/common"
	"github.com/jonahkesoyan/bittensor/peers"
)

type directoryConfig struct {
	ListenAddr  string               `yaml:"listen_addr"`
	MetricsAddr string               `yaml:"metrics_addr"`
	EnablePprof bool                 `yaml:"enable_pprof"`
	Store       string               `yaml:"store"`
	Postgres    peers.PostgresConfig `yaml:"postgres"`
	Log         common.LogConfig     `yaml:"log"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		addr        = flag.String("addr", "", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics snapshot listen address")
		enablePprof = flag.Bool("pprof", false, "Mount pprof under /debug")
		storeKind   = flag.String("store", "", "Backing store: memory or postgres")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		logFile     = flag.String("log-file", "", "Rotating log file path")
	)
	flag.Parse()

	cfg := &directoryConfig{}
	if *configPath != "" {
		if err := common.LoadYAML(*configPath, cfg); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *enablePprof {
		cfg.EnablePprof = true
	}
	if *storeKind != "" {
		cfg.Store = *storeKind
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *directoryConfig) error {
	log := cfg.Log.Logger()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dir := peers.NewDirectory(store, log)

	srv := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, dir)

	srv.RunInBackground()
	log.Info("directory up", "listen", cfg.ListenAddr, "store", storeName(cfg.Store))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	srv.Shutdown()
	return nil
}

func openStore(cfg *directoryConfig) (peers.Store, error) {
	switch storeName(cfg.Store) {
	case "memory":
		return peers.NewMemoryStore(), nil
	case "postgres":
		return peers.NewPostgresStore(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store %q (want memory or postgres)", cfg.Store)
	}
}

func storeName(name string) string {
	if name == "" {
		return "memory"
	}
	return name
}
