package discovery_test

import (
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/robgonnella/pmtud/internal/socket"
)

var (
	localIP  = net.IPv4(10, 0, 0, 1)
	targetIP = net.IPv4(10, 0, 0, 2)
	routerIP = net.IPv4(10, 0, 0, 254)
	otherIP  = net.IPv4(10, 0, 0, 99)

	target = netip.MustParseAddrPort("10.0.0.2:9000")
	router = netip.MustParseAddr("10.0.0.254")
	other  = netip.MustParseAddr("10.0.0.99")

	// identifier carried by echo requests of this process
	echoID = uint16(os.Getpid() & 0xffff)
)

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()

	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		panic(err)
	}

	return buf.Bytes()
}

func icmpPacket(src net.IP, typ, code uint8, id, seq uint16, payload []byte) []byte {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    src.To4(),
		DstIP:    localIP.To4(),
	}

	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(typ, code),
		Id:       id,
		Seq:      seq,
	}

	return serialize(ip, icmp, gopacket.Payload(payload))
}

// quote returns the leading bytes of a datagram we sent to dst, as carried
// inside ICMP error messages
func quote(dst net.IP, proto layers.IPProtocol) []byte {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      255,
		Flags:    layers.IPv4DontFragment,
		Protocol: proto,
		SrcIP:    localIP.To4(),
		DstIP:    dst.To4(),
	}

	return serialize(ip, gopacket.Payload([]byte("abcdefgh")))
}

func echoReply(src net.IP) []byte {
	return icmpPacket(src, layers.ICMPv4TypeEchoReply, 0, echoID, 1, []byte("abcdefgh"))
}

func unreachable(src net.IP, code uint8, mtu uint16, quoted []byte) []byte {
	return icmpPacket(src, layers.ICMPv4TypeDestinationUnreachable, code, 0, mtu, quoted)
}

func fragNeeded(src net.IP, mtu uint16) []byte {
	return unreachable(
		src,
		layers.ICMPv4CodeFragmentationNeeded,
		mtu,
		quote(targetIP, layers.IPProtocolICMPv4),
	)
}

func udpPacket(src net.IP, srcPort, dstPort uint16) []byte {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src.To4(),
		DstIP:    localIP.To4(),
	}

	udp := &layers.UDP{
		SrcPort: layers.UDPPort(srcPort),
		DstPort: layers.UDPPort(dstPort),
	}

	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}

	return serialize(ip, udp, gopacket.Payload([]byte("abcdefgh")))
}

func addrOf(ip net.IP) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip.To4())
	return addr
}

// reply scripted answer to a single Receive call
type reply struct {
	data []byte
	from netip.Addr
	err  error
}

func timeoutReply() reply {
	return reply{err: socket.ErrTimeout}
}

func packetFrom(data []byte, src net.IP) reply {
	return reply{data: data, from: addrOf(src)}
}

// fakeClock advances by step on every reading
type fakeClock struct {
	current time.Time
	step    time.Duration
}

func (c *fakeClock) now() time.Time {
	c.current = c.current.Add(c.step)
	return c.current
}

// fakeConn plays back scripted replies keyed on the size of the last send
type fakeConn struct {
	sent    []int
	last    int
	// received counts Receive calls since the last successful Send
	received int
	tooBig  func(size int) bool
	sendErr error
	respond func(size int) reply
	closed  bool
}

func (c *fakeConn) Send(b []byte, dst netip.AddrPort) error {
	if c.sendErr != nil {
		return c.sendErr
	}

	if c.tooBig != nil && c.tooBig(len(b)) {
		return socket.ErrMessageTooBig
	}

	c.sent = append(c.sent, len(b))
	c.last = len(b)
	c.received = 0

	return nil
}

func (c *fakeConn) Receive(b []byte) (int, netip.Addr, error) {
	c.received++
	r := c.respond(c.last)

	if r.err != nil {
		return 0, netip.Addr{}, r.err
	}

	return copy(b, r.data), r.from, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) sendsAt(size int) int {
	count := 0

	for _, s := range c.sent {
		if s == size {
			count++
		}
	}

	return count
}

// levels number of bracket halvings from [lower, upper] when every attempt fails
func levels(lower, upper int) int {
	n := 0

	for lower <= upper {
		upper = (lower+upper)/2 - 1
		n++
	}

	return n
}
