package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/jonahkesoyan/bittensor/synapse"
)

type minerConfig struct {
	// CompletionPrefix is prepended to the last prompt message.
	CompletionPrefix string `yaml:"completion_prefix"`

	// EmbeddingDim sets the width of the deterministic demo embedding.
	EmbeddingDim int `yaml:"embedding_dim"`

	// Blacklist lists sender hotkeys to refuse before admission.
	Blacklist []string `yaml:"blacklist"`

	// Priorities boosts specific sender hotkeys in the admission queue.
	Priorities map[string]float64 `yaml:"priorities"`
}

// miner is the built-in demo handler. Completions echo the prompt,
// embeddings are deterministic hashes of the text, speech is a passthrough
// of the input bytes. It exists so the binary serves something out of the
// box; real nodes attach their own handlers.
type miner struct {
	cfg    minerConfig
	log    *slog.Logger
	denied map[string]struct{}
}

func newMiner(cfg minerConfig, log *slog.Logger) *miner {
	if cfg.CompletionPrefix == "" {
		cfg.CompletionPrefix = "echo: "
	}
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = 64
	}

	denied := make(map[string]struct{}, len(cfg.Blacklist))
	for _, hotkey := range cfg.Blacklist {
		denied[strings.TrimPrefix(hotkey, "0x")] = struct{}{}
	}
	return &miner{cfg: cfg, log: log, denied: denied}
}

func (m *miner) synapseOptions() []synapse.Option {
	return []synapse.Option{
		synapse.WithBlacklist(func(call synapse.Call) (bool, string) {
			if _, ok := m.denied[call.Env().Sender()]; ok {
				return true, "sender is blacklisted"
			}
			return false, ""
		}),
		synapse.WithPriority(func(call synapse.Call) float64 {
			return m.cfg.Priorities[call.Env().Sender()]
		}),
	}
}

func (m *miner) Forward(ctx context.Context, roles, messages []string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	return m.cfg.CompletionPrefix + messages[len(messages)-1], nil
}

func (m *miner) Backward(ctx context.Context, roles, messages []string, completion string, rewards []float64) error {
	var sum float64
	for _, r := range rewards {
		sum += r
	}
	mean := 0.0
	if len(rewards) > 0 {
		mean = sum / float64(len(rewards))
	}
	m.log.Info("reward feedback", "rewards", len(rewards), "mean", mean)
	return nil
}

// embeddingMiner adapts miner to the embedding family. The vector is a
// deterministic hash of the text so repeated calls with the same input
// agree.
type embeddingMiner struct{ *miner }

func (e embeddingMiner) Forward(ctx context.Context, text string) ([][]float64, error) {
	row := make([]float64, e.cfg.EmbeddingDim)
	for i := range row {
		h := fnv.New64a()
		h.Write([]byte(text))
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], uint64(i))
		h.Write(idx[:])
		row[i] = float64(h.Sum64()%2000)/1000.0 - 1.0
	}
	return [][]float64{row}, nil
}

// speechMiner adapts miner to the speech family.
type speechMiner struct{ *miner }

func (s speechMiner) Forward(ctx context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}
