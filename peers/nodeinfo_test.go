package peers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsServing(t *testing.T) {
	node := NodeInfo{IP: UnroutableIP}
	assert.False(t, node.IsServing())

	node.IP = ""
	assert.False(t, node.IsServing())

	node.IP = "198.51.100.4"
	assert.True(t, node.IsServing())
}

func TestIPVersion(t *testing.T) {
	assert.Equal(t, 4, IPVersion("198.51.100.4"))
	assert.Equal(t, 4, IPVersion(UnroutableIP))
	assert.Equal(t, 6, IPVersion("2001:db8::1"))
	assert.Equal(t, 6, IPVersion("::1"))

	// Hostnames and garbage fall back to 4.
	assert.Equal(t, 4, IPVersion("miner.example.org"))
	assert.Equal(t, 4, IPVersion(""))
}

func TestNodeURL(t *testing.T) {
	node := NodeInfo{IP: "198.51.100.4", ExternalFastAPIPort: 8092}
	assert.Equal(t, "http://198.51.100.4:8092", node.URL())

	node = NodeInfo{IP: "2001:db8::1", ExternalFastAPIPort: 8092}
	assert.Equal(t, "http://[2001:db8::1]:8092", node.URL())
}
