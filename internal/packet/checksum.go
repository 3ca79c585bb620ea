package packet

import "encoding/binary"

// Checksum computes the RFC 791 internet checksum over b. The checksum
// field inside b must be zeroed by the caller before computing.
func Checksum(b []byte) uint16 {
	return fold(sum(0, b))
}

// UDPChecksum computes the RFC 768 checksum of a UDP header plus payload
// using the IPv4 pseudo-header built from src and dst. A computed value of
// zero is sent as all ones since zero means "no checksum".
func UDPChecksum(src, dst [4]byte, udp []byte) uint16 {
	pseudo := make([]byte, 12)

	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = byte(UDP)
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(udp)))

	csum := fold(sum(sum(0, pseudo), udp))

	if csum == 0 {
		return 0xffff
	}

	return csum
}

// sum adds the big-endian 16-bit words of b to acc, zero-padding an odd
// trailing byte
func sum(acc uint32, b []byte) uint32 {
	n := len(b)

	for i := 0; i+1 < n; i += 2 {
		acc += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}

	if n%2 == 1 {
		acc += uint32(b[n-1]) << 8
	}

	return acc
}

// fold folds carries back into the low 16 bits and complements
func fold(acc uint32) uint16 {
	for acc>>16 != 0 {
		acc = (acc & 0xffff) + (acc >> 16)
	}

	return ^uint16(acc)
}
