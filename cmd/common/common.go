// Package common provides shared utilities for the node binaries.
//
// This package contains helpers used across the standalone commands
// (server, client, directory) to reduce duplication:
//
//   - Hotkey loading, generation and on-disk persistence
//   - YAML configuration loading
//   - Structured logger construction with optional file rotation
package common

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/jonahkesoyan/bittensor/crypto"
)

// LoadOrGenerateKey resolves the node's ed25519 hotkey. Precedence: an
// existing key file, then the hex literal, then a freshly generated pair.
// When keyFile is set, a key that did not come from it is persisted there
// so the identity survives restarts.
func LoadOrGenerateKey(hexKey, keyFile string) (crypto.PrivateKey, error) {
	if keyFile != "" {
		data, err := os.ReadFile(keyFile)
		if err == nil {
			return parseKeyHex(strings.TrimSpace(string(data)))
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
	}

	var key crypto.PrivateKey
	if hexKey != "" {
		parsed, err := parseKeyHex(hexKey)
		if err != nil {
			return nil, err
		}
		key = parsed
	} else {
		_, generated, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		key = generated
	}

	if keyFile != "" {
		encoded := hex.EncodeToString(key.Bytes()) + "\n"
		if err := os.WriteFile(keyFile, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("writing key file: %w", err)
		}
	}
	return key, nil
}

func parseKeyHex(hexKey string) (crypto.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid key hex: %w", err)
	}
	return crypto.NewPrivateKeyFromBytes(keyBytes)
}

// LoadYAML reads a YAML file into cfg.
func LoadYAML(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

// LogConfig selects the handler and optional rotating file sink for a
// binary's logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// File enables a rotating log file next to stderr output.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Logger builds a slog.Logger from the configuration and installs it as
// the default.
func (c LogConfig) Logger() *slog.Logger {
	var w io.Writer = os.Stderr
	if c.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    orDefault(c.MaxSizeMB, 100),
			MaxBackups: orDefault(c.MaxBackups, 3),
			MaxAge:     orDefault(c.MaxAgeDays, 28),
			Compress:   c.Compress,
		}
		w = io.MultiWriter(os.Stderr, rotated)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	var handler slog.Handler
	if strings.EqualFold(c.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
