package packet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProtocol returned when a protocol tag is neither ICMP nor UDP
var ErrUnknownProtocol = errors.New("unknown protocol")

// Protocol selects the header carried after the IPv4 header. Values match
// the IP protocol numbers placed in the header.
type Protocol int

// Supported probe protocols
const (
	ICMP Protocol = 1
	UDP  Protocol = 17
)

// ParseProtocol converts "icmp" or "udp" to a Protocol
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "icmp":
		return ICMP, nil
	case "udp":
		return UDP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
}

// Valid reports whether p is a supported protocol
func (p Protocol) Valid() bool {
	return p == ICMP || p == UDP
}

func (p Protocol) String() string {
	switch p {
	case ICMP:
		return "ICMP"
	case UDP:
		return "UDP"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// HeaderLen returns the combined IPv4 and protocol header length
func (p Protocol) HeaderLen() int {
	switch p {
	case ICMP:
		return IPHeaderLen + ICMPHeaderLen
	case UDP:
		return IPHeaderLen + UDPHeaderLen
	default:
		return IPHeaderLen
	}
}
