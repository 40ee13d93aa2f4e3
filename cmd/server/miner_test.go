package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/protocol"
	"github.com/jonahkesoyan/bittensor/synapse"
	"github.com/jonahkesoyan/bittensor/testutil"
)

type stubCall struct{ env *protocol.Envelope }

func (c stubCall) Env() *protocol.Envelope { return c.env }
func (c stubCall) InputShapes() []int      { return nil }
func (c stubCall) OutputShapes() []int     { return nil }

func callFrom(t *testing.T, sender string) synapse.Call {
	t.Helper()
	return stubCall{env: testutil.NewTestEnvelope(testutil.WithSender(sender))}
}

func TestMinerCompletionEchoesPrompt(t *testing.T) {
	m := newMiner(minerConfig{}, slog.Default())

	completion, err := m.Forward(context.Background(), []string{"user"}, []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", completion)

	_, err = m.Forward(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestMinerEmbeddingIsDeterministic(t *testing.T) {
	m := newMiner(minerConfig{EmbeddingDim: 8}, slog.Default())
	em := embeddingMiner{m}

	first, err := em.Forward(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, first[0], 8)

	second, err := em.Forward(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := em.Forward(context.Background(), "different text")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	for _, v := range first[0] {
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestMinerGatingHooks(t *testing.T) {
	m := newMiner(minerConfig{
		Blacklist:  []string{"badc0ffe"},
		Priorities: map[string]float64{"f00dfeed": 5.0},
	}, slog.Default())

	syn := synapse.NewTextCompletion(m, m.synapseOptions()...)

	denied, reason := syn.Blacklist(callFrom(t, "badc0ffe"))
	assert.True(t, denied)
	assert.Equal(t, "sender is blacklisted", reason)

	denied, _ = syn.Blacklist(callFrom(t, "00000000"))
	assert.False(t, denied)

	assert.Equal(t, 5.0, syn.Priority(callFrom(t, "f00dfeed")))
	assert.Equal(t, 0.0, syn.Priority(callFrom(t, "00000000")))
}
