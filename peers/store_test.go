package peers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/peers"
)

func signedTestNode(t *testing.T) *peers.SignedAnnouncement {
	t.Helper()

	node, key := testNode(t)
	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)
	return ann
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := peers.NewMemoryStore()
	defer store.Close()

	node, key := testNode(t)
	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)
	require.NoError(t, store.Save(ann))

	loaded, err := store.Load(node.Hotkey)
	require.NoError(t, err)
	assert.Equal(t, node.Hotkey, loaded.Node.Hotkey)
	assert.Equal(t, node.IP, loaded.Node.IP)

	// Saving the same hotkey again replaces the record.
	node.IP = "203.0.113.7"
	updated, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)
	require.NoError(t, store.Save(updated))

	loaded, err = store.Load(node.Hotkey)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", loaded.Node.IP)

	all, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Delete(node.Hotkey))
	_, err = store.Load(node.Hotkey)
	assert.ErrorIs(t, err, peers.ErrNotFound)
}

func TestMemoryStoreLoadAllSorted(t *testing.T) {
	store := peers.NewMemoryStore()
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(signedTestNode(t)))
	}

	all, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 5)

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Node.Hotkey, all[i].Node.Hotkey)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := peers.NewMemoryStore()
	defer store.Close()

	_, err := store.Load("deadbeef")
	assert.ErrorIs(t, err, peers.ErrNotFound)

	assert.NoError(t, store.Delete("deadbeef"))
}
