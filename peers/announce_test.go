package peers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/testutil"
)

func testNode(t *testing.T) (peers.NodeInfo, crypto.PrivateKey) {
	t.Helper()

	_, key, err := testutil.GenerateTestKeyPair()
	require.NoError(t, err)

	return testutil.NewTestNode(testutil.WithNodeHotkey(key.Address())), key
}

func TestSignedAnnouncementRoundTrip(t *testing.T) {
	node, key := testNode(t)

	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)

	recovered, err := ann.Recover()
	require.NoError(t, err)
	assert.Equal(t, node, *recovered)
}

func TestRecoverRejectsTamperedRecord(t *testing.T) {
	node, key := testNode(t)

	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)

	ann.Node.IP = "203.0.113.99"

	_, err = ann.Recover()
	assert.ErrorIs(t, err, peers.ErrBadAnnouncementSignature)
}

func TestRecoverRejectsForeignHotkey(t *testing.T) {
	node, key := testNode(t)

	// Honestly signed, but the record claims someone else's address.
	node.Hotkey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)

	_, err = ann.Recover()
	assert.ErrorIs(t, err, peers.ErrHotkeyMismatch)
}

func TestRecoverRejectsMissingRecord(t *testing.T) {
	_, key := testNode(t)

	pubkey, err := key.PublicKey()
	require.NoError(t, err)

	ann := &peers.SignedAnnouncement{PublicKey: pubkey}
	_, err = ann.Recover()
	assert.ErrorIs(t, err, peers.ErrBadAnnouncementSignature)
}
