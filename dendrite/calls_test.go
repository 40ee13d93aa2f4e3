package dendrite

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonahkesoyan/bittensor/protocol"
	"github.com/jonahkesoyan/bittensor/synapse"
)

func TestCallConstructors(t *testing.T) {
	// Zero timeout falls back to the default budget, both on the envelope
	// side and in the wire body.
	tc := NewTextCompletion([]string{"user"}, []string{"a", "b"}, 0)
	assert.Equal(t, synapse.DefaultTimeout, tc.Timeout())
	assert.Equal(t, synapse.RouteTextCompletionForward, tc.Route())
	assert.Equal(t, synapse.TextCompletionName, tc.Name())
	assert.True(t, tc.IsForward())
	assert.Equal(t, []int{1, 2}, tc.InputShapes())
	assert.Nil(t, tc.OutputShapes())

	body, err := json.Marshal(tc.RequestBody())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"timeout":12`)

	back := NewTextBackward([]string{"user"}, []string{"a"}, "done", []float64{0.5}, 3*time.Second)
	assert.False(t, back.IsForward())
	assert.Equal(t, synapse.RouteTextCompletionBackward, back.Route())
	assert.Equal(t, 3*time.Second, back.Timeout())
	assert.Equal(t, []int{1, 1}, back.InputShapes())

	emb := NewTextEmbedding("hello", 0)
	assert.Equal(t, synapse.RouteTextEmbeddingForward, emb.Route())
	assert.Equal(t, []int{5}, emb.InputShapes())

	sp := NewTextToSpeech("hello", 0)
	assert.Equal(t, synapse.RouteTextToSpeechForward, sp.Route())
	assert.Equal(t, synapse.TextToSpeechName, sp.Name())
}

func TestWireTimeoutRoundsUp(t *testing.T) {
	// A sub-second budget must not truncate to a wire timeout of zero:
	// the server reads zero as "use the default" and would run twelve
	// seconds while the client enforces the sub-second deadline.
	wireTimeout := func(call Call) int {
		raw, err := json.Marshal(call.RequestBody())
		require.NoError(t, err)
		var body synapse.CallBody
		require.NoError(t, json.Unmarshal(raw, &body))
		return body.Timeout
	}

	tc := NewTextCompletion([]string{"user"}, []string{"hi"}, 200*time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, tc.Timeout())
	assert.Equal(t, 1, wireTimeout(tc))

	// Fractional budgets above a second round up, never down.
	assert.Equal(t, 2, wireTimeout(NewTextEmbedding("hi", 1500*time.Millisecond)))
	assert.Equal(t, 2, wireTimeout(NewTextBackward([]string{"user"}, []string{"hi"}, "done", []float64{1}, 1100*time.Millisecond)))

	// Whole seconds travel unchanged.
	assert.Equal(t, 3, wireTimeout(NewTextToSpeech("hi", 3*time.Second)))
}

func TestApplyResponseFillsOutputs(t *testing.T) {
	tc := NewTextCompletion([]string{"user"}, []string{"hi"}, 0)
	require.NoError(t, tc.ApplyResponse([]byte(`{"return_code":1,"return_message":"Success","completion":"hello there"}`)))

	code, message := tc.Outcome()
	assert.Equal(t, protocol.CodeSuccess, code)
	assert.Equal(t, "Success", message)
	assert.Equal(t, "hello there", tc.Completion())
	assert.Equal(t, []int{11}, tc.OutputShapes())

	emb := NewTextEmbedding("hi", 0)
	require.NoError(t, emb.ApplyResponse([]byte(`{"return_code":1,"embedding":[[0.1,0.2],[0.3,0.4],[0.5,0.6]]}`)))
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}}, emb.Embedding())
	assert.Equal(t, []int{3, 2}, emb.OutputShapes())

	// Failed exchanges do not publish output shapes.
	fail := NewTextCompletion(nil, []string{"hi"}, 0)
	require.NoError(t, fail.ApplyResponse([]byte(`{"return_code":2,"return_message":"timeout after 12s","completion":""}`)))
	assert.Nil(t, fail.OutputShapes())
	code, _ = fail.Outcome()
	assert.Equal(t, protocol.CodeTimeout, code)

	malformed := NewTextToSpeech("x", 0)
	assert.Error(t, malformed.ApplyResponse([]byte(`{nope`)))
}
