package discovery

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/robgonnella/pmtud/internal/packet"
	"golang.org/x/net/ipv4"
)

// Validator classifies datagrams received during one run. Its zero
// EchoID is only compared when MatchEchoID is set.
type Validator struct {
	Protocol    packet.Protocol
	Destination netip.AddrPort
	// MatchEchoID requires echo replies to carry EchoID
	MatchEchoID bool
	EchoID      uint16
}

// Classify decides whether a received datagram, IPv4 header included, is a
// genuine reply from dest, foreign noise, or a negative signal capping the
// search. sender is the address reported by the socket; when invalid the
// header source is used. Classify holds no state.
func Classify(proto packet.Protocol, b []byte, dest netip.AddrPort, sender netip.Addr) Verdict {
	v := Validator{
		Protocol:    proto,
		Destination: dest,
	}

	return v.Classify(b, sender)
}

// Classify applies the validator's expectations to one datagram
func (v Validator) Classify(b []byte, sender netip.Addr) Verdict {
	hdr, err := ipv4.ParseHeader(b)

	if err != nil || hdr.Len > len(b) {
		return Verdict{Class: Foreign}
	}

	if !sender.IsValid() {
		if addr, ok := netip.AddrFromSlice(hdr.Src.To4()); ok {
			sender = addr
		}
	}

	sender = sender.Unmap()
	payload := b[hdr.Len:]

	switch v.Protocol {
	case packet.ICMP:
		if hdr.Protocol != int(packet.ICMP) {
			return Verdict{Class: Foreign}
		}

		return v.classifyICMP(payload, sender)
	case packet.UDP:
		if hdr.Protocol != int(packet.UDP) {
			return Verdict{Class: Foreign}
		}

		return v.classifyUDP(payload, sender)
	default:
		return Verdict{Class: NegativeSignal, Code: CodeUnknown}
	}
}

// Destination unreachable is honored from any sender since routers along
// the path are the ones reporting fragmentation needed
func (v Validator) classifyICMP(payload []byte, sender netip.Addr) Verdict {
	var icmp layers.ICMPv4

	if err := icmp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return Verdict{Class: Foreign}
	}

	switch icmp.TypeCode.Type() {
	case layers.ICMPv4TypeEchoReply:
		if sender != v.Destination.Addr() {
			return Verdict{Class: Foreign}
		}

		if v.MatchEchoID && icmp.Id != v.EchoID {
			return Verdict{Class: Foreign}
		}

		return Verdict{Class: Success}
	case layers.ICMPv4TypeDestinationUnreachable:
		if !v.quotesOurs(icmp.Payload) {
			return Verdict{Class: Foreign}
		}

		verdict := Verdict{
			Class: NegativeSignal,
			Code:  int(icmp.TypeCode.Code()),
		}

		if icmp.TypeCode.Code() == layers.ICMPv4CodeFragmentationNeeded {
			// RFC 1191 next-hop MTU lives in the low half of the
			// rest-of-header word
			verdict.NextHopMTU = int(icmp.Seq)
		}

		return verdict
	case layers.ICMPv4TypeEchoRequest:
		// our own probe looped back on a local destination
		return Verdict{Class: Foreign}
	default:
		return Verdict{Class: NegativeSignal, Code: CodeUnknown}
	}
}

// quotesOurs reports whether an ICMP error quotes a datagram we could have
// sent. A quote too short to parse is given the benefit of the doubt.
func (v Validator) quotesOurs(quote []byte) bool {
	inner, err := ipv4.ParseHeader(quote)

	if err != nil {
		return true
	}

	dst, ok := netip.AddrFromSlice(inner.Dst.To4())

	if !ok {
		return true
	}

	return dst == v.Destination.Addr() && inner.Protocol == int(v.Protocol)
}

func (v Validator) classifyUDP(payload []byte, sender netip.Addr) Verdict {
	var udp layers.UDP

	if err := udp.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return Verdict{Class: Foreign}
	}

	if sender != v.Destination.Addr() || uint16(udp.SrcPort) != v.Destination.Port() {
		return Verdict{Class: Foreign}
	}

	return Verdict{Class: Success}
}
