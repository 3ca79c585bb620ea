package discovery

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/robgonnella/pmtud/internal/packet"
)

// Request describes one discovery run. Source is optional, the zero value
// lets the kernel choose. Destination must carry a port for UDP.
type Request struct {
	Source      netip.AddrPort
	Destination netip.AddrPort
	Protocol    packet.Protocol
	MaxTries    int
	Timeout     time.Duration
	// MinSize and MaxSize bound the search, zero selects 68 and 65536
	MinSize int
	MaxSize int
}

// Class of a received datagram
type Class int

// Classes assigned by the reply validator
const (
	Foreign Class = iota
	Success
	NegativeSignal
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case NegativeSignal:
		return "negative-signal"
	default:
		return "foreign"
	}
}

// CodeUnknown negative signal code for ICMP types we do not recognize
const CodeUnknown = -1

// Verdict is the reply validator's decision for one datagram
type Verdict struct {
	Class Class
	// Code ICMP destination unreachable code, or CodeUnknown
	Code int
	// NextHopMTU reported alongside fragmentation needed, zero if absent
	NextHopMTU int
}

// Description returns a human readable explanation of a negative signal
func (v Verdict) Description() string {
	if v.Class != NegativeSignal {
		return v.Class.String()
	}

	switch v.Code {
	case 0:
		return "ICMP error, network unreachable"
	case 1:
		return "ICMP error, host unreachable"
	case 3:
		return "ICMP error, port unreachable"
	case 4:
		if v.NextHopMTU > 0 {
			return fmt.Sprintf("ICMP error, fragmentation needed (next-hop MTU %d)", v.NextHopMTU)
		}

		return "ICMP error, fragmentation needed"
	case CodeUnknown:
		return "unknown error"
	default:
		return "unknown ICMP error"
	}
}

// Outcome of a single transport operation
type Outcome int

// Transport outcomes
const (
	OutcomeSent Outcome = iota
	OutcomeTooBig
	OutcomeReply
	OutcomeTimeout
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeTooBig:
		return "too-big"
	case OutcomeReply:
		return "reply"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "fatal"
	}
}

// Reason explains why the search bracket moved
type Reason int

// Bracket movement reasons
const (
	ReasonConfirmed Reason = iota
	ReasonTimedOut
	ReasonNegativeSignal
	ReasonTooBig
)

func (r Reason) String() string {
	switch r {
	case ReasonConfirmed:
		return "valid"
	case ReasonTimedOut:
		return "no response, invalid MTU size"
	case ReasonNegativeSignal:
		return "negative signal"
	default:
		return "packet too big for local interface"
	}
}

// Step records one bracket movement
type Step struct {
	Size    int
	Reason  Reason
	Verdict Verdict
	// Sends datagrams handed to the socket at this size, retries included
	Sends int
	// Lower and Upper bracket after the move
	Lower int
	Upper int
}

// Describe returns the progress text for this step
func (s Step) Describe() string {
	if s.Reason == ReasonNegativeSignal {
		return s.Verdict.Description()
	}

	return s.Reason.String()
}

// Result of a discovery run. Size is only meaningful when Found is true.
type Result struct {
	Protocol    packet.Protocol
	Destination netip.AddrPort
	Size        int
	Found       bool
	Sends       int
	// Discarded foreign packets received while waiting for replies
	Discarded int
	Steps     []Step
}

// PayloadLen returns the number of payload bytes carried at Size
func (r *Result) PayloadLen() int {
	if !r.Found {
		return 0
	}

	return r.Size - r.Protocol.HeaderLen()
}
