package peers

import (
	"net"
	"strconv"
)

// ProtocolNumber is the transport discriminator carried in every identity
// record. 4 marks the HTTP JSON transport this module speaks.
const ProtocolNumber = 4

// UnroutableIP is the bind-everything address. A node advertising it has
// not been told its public address and cannot be dialed.
const UnroutableIP = "0.0.0.0"

// NodeInfo is the self-reported identity record of one serving node. The
// JSON keys are fixed by the wire protocol; peers of any implementation
// exchange exactly this shape.
//
// Port is the node's legacy transport port and travels for compatibility;
// requests are dialed against FastAPIPort (or ExternalFastAPIPort when the
// node sits behind a NAT or proxy).
type NodeInfo struct {
	Version             int    `json:"version"`
	IP                  string `json:"ip"`
	Port                int    `json:"port"`
	IPType              int    `json:"ip_type"`
	Hotkey              string `json:"hotkey"`
	Coldkey             string `json:"coldkey"`
	Protocol            int    `json:"protocol"`
	FastAPIPort         int    `json:"fast_api_port"`
	ExternalFastAPIPort int    `json:"external_fast_api_port"`
}

// IPVersion reports 4 or 6 for the given literal address. Unparseable
// input (a hostname, for example) is treated as 4.
func IPVersion(addr string) int {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() != nil {
		return 4
	}
	return 6
}

// IsServing reports whether the record names an address peers can dial.
func (n NodeInfo) IsServing() bool {
	return n.IP != "" && n.IP != UnroutableIP
}

// URL returns the base HTTP URL requests to this node are issued against.
func (n NodeInfo) URL() string {
	return "http://" + net.JoinHostPort(n.IP, strconv.Itoa(n.ExternalFastAPIPort))
}
