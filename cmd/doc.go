// Package cmd provides the node binaries.
//
// # Commands
//
// server: Runs a serving node exposing the signed RPC surface with a
// built-in demo handler. Optionally announces itself to a peer directory.
//
//	go run ./cmd/server --config=server.yaml
//	go run ./cmd/server --external-ip=203.0.113.7 --hotkey-file=hotkey.hex
//
// client: CLI for calling serving nodes: completions, reward feedback,
// embeddings, speech synthesis, descriptor and directory queries.
//
//	go run ./cmd/client complete -t http://localhost:8092 -m "Hello"
//	go run ./cmd/client nodes -d http://localhost:8080
//
// directory: Runs the peer directory that stores signed identity records,
// backed by memory or Postgres.
//
//	go run ./cmd/directory --addr=:8080 --store=memory
//
// # Configuration
//
// The server and directory commands support YAML configuration files via
// the --config flag. Command-line flags override config file values.
//
// Example config for the server command:
//
//	axon:
//	  external_ip: "203.0.113.7"
//	  fast_api_port: 8092
//	  nonce_ttl: 1h
//	miner:
//	  completion_prefix: "echo: "
//	directory:
//	  url: "http://localhost:8080"
//	log:
//	  level: info
//	  format: text
//
// A node's identity is its ed25519 hotkey. Use --hotkey-file to persist a
// generated key across restarts, or --hotkey to pass one as hex.
package cmd
