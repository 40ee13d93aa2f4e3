package dendrite

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/axon"
	"github.com/jonahkesoyan/bittensor/crypto"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/protocol"
	"github.com/jonahkesoyan/bittensor/synapse"
	"github.com/jonahkesoyan/bittensor/testutil"
)

type echoMiner struct{}

func (echoMiner) Forward(ctx context.Context, roles, messages []string) (string, error) {
	return "echo: " + strings.Join(messages, " "), nil
}

func (echoMiner) Backward(ctx context.Context, roles, messages []string, completion string, rewards []float64) error {
	return nil
}

// newTestAxon serves a real axon over a loopback listener and returns the
// identity record a dendrite dials it with.
func newTestAxon(t *testing.T) peers.NodeInfo {
	t.Helper()
	_, hotkey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	ax, err := axon.New(axon.Config{}, hotkey)
	require.NoError(t, err)
	ax.Attach(synapse.NewTextCompletion(echoMiner{}))

	srv := httptest.NewServer(ax.Handler())
	t.Cleanup(srv.Close)
	return targetFor(t, srv, ax.Address())
}

func targetFor(t *testing.T, srv *httptest.Server, hotkey string) peers.NodeInfo {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return testutil.NewTestNode(
		testutil.WithNodeIP(host),
		testutil.WithNodeAPIPort(port),
		testutil.WithNodeHotkey(hotkey),
	)
}

func newTestDendrite(t *testing.T, opts ...Option) *Dendrite {
	t.Helper()
	_, key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	d, err := New(key, opts...)
	require.NoError(t, err)
	return d
}

func TestApplyAgainstAxon(t *testing.T) {
	target := newTestAxon(t)
	d := newTestDendrite(t)

	// 1. A first call round-trips through real authentication.
	call := NewTextCompletion([]string{"user"}, []string{"hello", "axon"}, 0)
	env, err := d.Apply(context.Background(), target, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeSuccess, env.Code())
	assert.Equal(t, "Success", env.Message())
	assert.True(t, env.Completed())
	assert.Equal(t, "echo: hello axon", call.Completion())

	// 2. The next call draws a larger nonce and passes the replay check.
	call = NewTextCompletion([]string{"user"}, []string{"again"}, 0)
	env, err = d.Apply(context.Background(), target, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeSuccess, env.Code())
	assert.Equal(t, "echo: again", call.Completion())

	// 3. Backward feedback flows through the same pipeline.
	back := NewTextBackward([]string{"user"}, []string{"hello"}, "echo: hello", []float64{0.9}, 0)
	env, err = d.Apply(context.Background(), target, back)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeSuccess, env.Code())
}

func TestApplyAuthRejectionSurfacesDetail(t *testing.T) {
	target := newTestAxon(t)
	d := newTestDendrite(t)

	// Sign against the wrong receiver identity; the axon refuses with 403
	// and the detail lands in the envelope message.
	target.Hotkey = "00112233"

	call := NewTextCompletion([]string{"user"}, []string{"hello"}, 0)
	env, err := d.Apply(context.Background(), target, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeUnknownError, env.Code())
	assert.Contains(t, env.Message(), "http 403")
	assert.Contains(t, env.Message(), "Signature mismatch")
	assert.True(t, env.Completed())
}

func TestApplyTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	d := newTestDendrite(t)
	target := targetFor(t, slow, "aabbccdd")

	call := NewTextCompletion([]string{"user"}, []string{"hello"}, 200*time.Millisecond)
	start := time.Now()
	env, err := d.Apply(context.Background(), target, call)
	require.NoError(t, err)

	assert.Equal(t, protocol.CodeTimeout, env.Code())
	assert.Contains(t, env.Message(), "timeout after")
	assert.True(t, env.Completed())
	// The caller got its answer at the deadline, not when the server was done.
	assert.Less(t, time.Since(start), time.Second)
}

func TestApplyConnectionFailure(t *testing.T) {
	// Grab a port that is free and keep it closed.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	d := newTestDendrite(t)
	target := testutil.NewTestNode(
		testutil.WithNodeIP("127.0.0.1"),
		testutil.WithNodeAPIPort(port),
		testutil.WithNodeHotkey("aabbccdd"),
	)

	call := NewTextCompletion([]string{"user"}, []string{"hello"}, time.Second)
	env, err := d.Apply(context.Background(), target, call)
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeUnknownError, env.Code())
	assert.Contains(t, env.Message(), "request failed")
	assert.True(t, env.Completed())
}

func TestOutboundHeaders(t *testing.T) {
	var (
		gotSignature string
		gotVersion   string
		gotAuth      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(protocol.SignatureHeader)
		gotVersion = r.Header.Get(protocol.VersionHeader)
		gotAuth = r.Header.Get(protocol.RPCAuthHeader)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"return_code":1,"return_message":"Success"}`))
	}))
	defer srv.Close()

	d := newTestDendrite(t)
	receiver := "f00dfeed"
	target := targetFor(t, srv, receiver)

	_, err := d.Apply(context.Background(), target, NewTextCompletion(nil, []string{"x"}, 0))
	require.NoError(t, err)

	assert.Equal(t, strconv.Itoa(protocol.VersionAsInt), gotVersion)
	assert.Equal(t, protocol.RPCAuthValue, gotAuth)

	// The signature header parses and verifies against the sender identity
	// for exactly this receiver and session.
	tag, err := protocol.ParseAuthHeader(gotSignature)
	require.NoError(t, err)
	assert.Equal(t, d.Address(), tag.Sender)
	assert.Equal(t, d.Session(), tag.Session)

	sender, err := crypto.NewPublicKeyFromString(tag.Sender)
	require.NoError(t, err)
	message := protocol.CanonicalMessage(tag.Nonce, tag.Sender, receiver, tag.Session)
	assert.True(t, tag.Signature.Verify(sender, []byte(message)))
}

func TestServerReportedFailureLandsInEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"return_code":26,"return_message":"server overloaded, retry later"}`))
	}))
	defer srv.Close()

	d := newTestDendrite(t)
	env, err := d.Apply(context.Background(), targetFor(t, srv, "aabbccdd"), NewTextCompletion(nil, []string{"x"}, 0))
	require.NoError(t, err)

	assert.Equal(t, protocol.CodeOverloaded, env.Code())
	assert.Equal(t, "server overloaded, retry later", env.Message())
	assert.True(t, env.Code().Retryable())
}

func TestNonceSourceIsStrictlyIncreasing(t *testing.T) {
	var src nonceSource

	const goroutines = 8
	const draws = 200

	results := make([][]uint64, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			local := make([]uint64, 0, draws)
			for j := 0; j < draws; j++ {
				local = append(local, src.Next())
			}
			results[slot] = local
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, goroutines*draws)
	for _, local := range results {
		prev := uint64(0)
		for _, n := range local {
			// Within one goroutine the sequence must grow.
			require.Greater(t, n, prev)
			prev = n
			require.False(t, seen[n], "nonce issued twice")
			seen[n] = true
		}
	}
	assert.Len(t, seen, goroutines*draws)
}
