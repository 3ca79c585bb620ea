package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"

	"golang.org/x/net/ipv4"
)

// Sizes in bytes
const (
	IPHeaderLen   = ipv4.HeaderLen
	ICMPHeaderLen = 8
	UDPHeaderLen  = 8

	// MinSize minimum MTU (RFC 1191, Sect. 3)
	MinSize = 68
	// MaxSize upper end of the search range (RFC 791)
	MaxSize = 65536

	// maxTotalLen largest value the total length field can carry
	maxTotalLen = 65535
)

// DefaultTTL time to live set on every probe
const DefaultTTL = 255

// ICMP echo header types
const (
	icmpEchoRequest = uint8(ipv4.ICMPTypeEcho)
)

// ErrSizeOutOfRange returned when a probe cannot be staged at the
// requested size
var ErrSizeOutOfRange = errors.New("probe size out of range")

// ICMPEcho is the RFC 792 echo request header
type ICMPEcho struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

func (h *ICMPEcho) marshal(b []byte) {
	b[0] = h.Type
	b[1] = h.Code
	binary.BigEndian.PutUint16(b[2:4], h.Checksum)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], h.Seq)
}

// UDPHeader is the RFC 768 header
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

func (h *UDPHeader) marshal(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(b[2:4], h.DstPort)
	binary.BigEndian.PutUint16(b[4:6], h.Length)
	binary.BigEndian.PutUint16(b[6:8], h.Checksum)
}

// Probe is the single packet buffer of a discovery run. Fixed fields are
// set once by New, Stage rewrites the mutable ones for every attempt.
// Exactly one of ICMP and UDP is set, selected by Protocol.
type Probe struct {
	IP       ipv4.Header
	Protocol Protocol
	ICMP     *ICMPEcho
	UDP      *UDPHeader

	src    [4]byte
	dst    [4]byte
	hasSrc bool
	id     uint16
	buf    []byte
}

// New returns a probe addressed from src to dst able to stage sizes up to
// maxSize. src may be the zero AddrPort, in which case the kernel picks the
// source address.
func New(proto Protocol, src, dst netip.AddrPort, maxSize int) (*Probe, error) {
	if !proto.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProtocol, int(proto))
	}

	if !dst.Addr().Is4() {
		return nil, fmt.Errorf("destination %s is not an IPv4 address", dst)
	}

	hdrLen := proto.HeaderLen()

	if maxSize > maxTotalLen {
		maxSize = maxTotalLen
	}

	if maxSize < hdrLen {
		return nil, fmt.Errorf("%w: %d", ErrSizeOutOfRange, maxSize)
	}

	p := &Probe{
		Protocol: proto,
		dst:      dst.Addr().As4(),
		buf:      make([]byte, maxSize),
	}

	srcIP := net.IPv4zero

	if src.Addr().Is4() && !src.Addr().IsUnspecified() {
		p.src = src.Addr().As4()
		p.hasSrc = true
		srcIP = net.IP(p.src[:])
	}

	p.IP = ipv4.Header{
		Version:  ipv4.Version,
		Len:      IPHeaderLen,
		Flags:    ipv4.DontFragment,
		TTL:      DefaultTTL,
		Protocol: int(proto),
		Src:      srcIP,
		Dst:      net.IP(p.dst[:]),
	}

	switch proto {
	case ICMP:
		p.ICMP = &ICMPEcho{
			Type: icmpEchoRequest,
			ID:   uint16(os.Getpid() & 0xffff),
		}
	case UDP:
		p.UDP = &UDPHeader{
			SrcPort: src.Port(),
			DstPort: dst.Port(),
		}
	}

	for i := hdrLen; i < len(p.buf); i++ {
		p.buf[i] = 'a' + byte((i-hdrLen)%26)
	}

	return p, nil
}

// HeaderLen returns the number of header bytes preceding the payload
func (p *Probe) HeaderLen() int {
	return p.Protocol.HeaderLen()
}

// ID returns the identification of the most recently staged probe
func (p *Probe) ID() uint16 {
	return p.id
}

// Sequence returns the ICMP sequence number of the most recently staged
// probe, always zero for UDP
func (p *Probe) Sequence() uint16 {
	if p.ICMP == nil {
		return 0
	}

	return p.ICMP.Seq
}

// Stage rewrites length, identification, sequence, and checksums for the
// given total size and returns the exact byte image to send
func (p *Probe) Stage(size int) ([]byte, error) {
	if size < p.HeaderLen() || size > maxTotalLen || size > len(p.buf) {
		return nil, fmt.Errorf("%w: %d", ErrSizeOutOfRange, size)
	}

	image := p.buf[:size]
	body := image[IPHeaderLen:]

	p.id++

	switch p.Protocol {
	case ICMP:
		p.ICMP.Seq++
		p.ICMP.Checksum = 0
		p.ICMP.marshal(body)
		p.ICMP.Checksum = Checksum(body)
		binary.BigEndian.PutUint16(body[2:4], p.ICMP.Checksum)
	case UDP:
		p.UDP.Length = uint16(len(body))
		p.UDP.Checksum = 0
		p.UDP.marshal(body)

		// without a source address the kernel fills it in after we
		// checksum, so leave it unused
		if p.hasSrc {
			p.UDP.Checksum = UDPChecksum(p.src, p.dst, body)
			binary.BigEndian.PutUint16(body[6:8], p.UDP.Checksum)
		}
	}

	p.IP.TotalLen = size
	p.IP.ID = int(p.id)
	p.IP.Checksum = 0

	hdr, err := p.IP.Marshal()

	if err != nil {
		return nil, err
	}

	copy(image, hdr)

	p.IP.Checksum = int(Checksum(image[:IPHeaderLen]))
	binary.BigEndian.PutUint16(image[10:12], uint16(p.IP.Checksum))

	return image, nil
}
