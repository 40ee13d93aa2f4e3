package peers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/peers"
)

func newTestDirectory(t *testing.T) (*httptest.Server, peers.Store) {
	t.Helper()

	store := peers.NewMemoryStore()
	dir := peers.NewDirectory(store, nil)

	router := chi.NewRouter()
	dir.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestDirectoryLifecycle(t *testing.T) {
	srv, _ := newTestDirectory(t)
	client := peers.NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	nodes, err := client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	node, key := testNode(t)
	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)

	require.NoError(t, client.Announce(ctx, ann))

	nodes, err = client.List(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, node, nodes[0])

	got, err := client.Get(ctx, node.Hotkey)
	require.NoError(t, err)
	assert.Equal(t, node, got)

	require.NoError(t, client.Withdraw(ctx, ann))

	_, err = client.Get(ctx, node.Hotkey)
	assert.ErrorIs(t, err, peers.ErrNotFound)
}

func TestDirectoryRejectsTamperedAnnouncement(t *testing.T) {
	srv, _ := newTestDirectory(t)

	node, key := testNode(t)
	ann, err := peers.NewSignedAnnouncement(key, node)
	require.NoError(t, err)
	ann.Node.Port = 9999

	payload, err := json.Marshal(ann)
	require.NoError(t, err)

	resp, err := srv.Client().Post(srv.URL+"/nodes", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDirectoryRejectsMalformedAnnouncement(t *testing.T) {
	srv, _ := newTestDirectory(t)

	resp, err := srv.Client().Post(srv.URL+"/nodes", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDirectoryWithdrawRequiresMatchingHotkey(t *testing.T) {
	srv, store := newTestDirectory(t)

	victim := signedTestNode(t)
	require.NoError(t, store.Save(victim))

	// A valid announcement for a different key must not withdraw the
	// victim's record.
	intruder := signedTestNode(t)
	payload, err := json.Marshal(intruder)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/nodes/"+victim.Node.Hotkey, bytes.NewReader(payload))
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = store.Load(victim.Node.Hotkey)
	assert.NoError(t, err)
}

func TestDirectoryGetUnknownNode(t *testing.T) {
	srv, _ := newTestDirectory(t)

	resp, err := srv.Client().Get(srv.URL + "/nodes/deadbeef")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDirectoryCORSOnReads(t *testing.T) {
	srv, _ := newTestDirectory(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/nodes", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestClientListDropsUnverifiableRecords(t *testing.T) {
	srv, store := newTestDirectory(t)

	good := signedTestNode(t)
	require.NoError(t, store.Save(good))

	// Planted directly in the store, bypassing announce verification.
	bad := signedTestNode(t)
	bad.Node.IP = "203.0.113.66"
	require.NoError(t, store.Save(bad))

	nodes, err := peers.NewClient(srv.URL, srv.Client()).List(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, good.Node.Hotkey, nodes[0].Hotkey)
}
