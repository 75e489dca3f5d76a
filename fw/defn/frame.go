/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	"encoding/binary"
)

// Ethernet and IPv4 framing constants.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EthHdrLen            = 14
	IPv4HdrLen           = 20

	// IcnFrameOffset is where the ICN packet starts within a frame.
	IcnFrameOffset = EthHdrLen + IPv4HdrLen
)

// FramePayload validates the Ethernet and IPv4 framing of frame and
// returns the ICN packet bytes. Returns ErrMalformed for non-IPv4 frames
// (e.g. ARP, ICMP) and for IPv4 datagrams not carrying ICN.
func FramePayload(frame []byte) ([]byte, error) {
	if len(frame) < IcnFrameOffset {
		return nil, ErrMalformed
	}
	if binary.BigEndian.Uint16(frame[12:14]) != EtherTypeIPv4 {
		return nil, ErrMalformed
	}
	if frame[EthHdrLen+9] != IPProtoICN {
		return nil, ErrMalformed
	}
	return frame[IcnFrameOffset:], nil
}

// RewriteMacs sets the destination and source addresses of the Ethernet
// header in place. All other frame fields are assumed already valid.
func RewriteMacs(frame []byte, dst, src MacAddr) {
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
}

// BuildFrame wraps an ICN packet in Ethernet and IPv4 headers. The source
// IPv4 address carries the low 32 bits of the name hash so that flow-hash
// based receive steering keeps a name on one queue, mirroring what the
// sending router's dispatcher does internally.
func BuildFrame(dst, src MacAddr, nameHash uint32, icn []byte) []byte {
	frame := make([]byte, IcnFrameOffset+len(icn))
	copy(frame[0:6], dst[:])
	copy(frame[6:12], src[:])
	binary.BigEndian.PutUint16(frame[12:14], EtherTypeIPv4)

	ip := frame[EthHdrLen:IcnFrameOffset]
	ip[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(ip[2:4], uint16(IPv4HdrLen+len(icn)))
	ip[8] = 64 // TTL
	ip[9] = IPProtoICN
	binary.BigEndian.PutUint32(ip[12:16], nameHash)
	binary.BigEndian.PutUint16(ip[10:12], ipv4Checksum(ip))

	copy(frame[IcnFrameOffset:], icn)
	return frame
}

// ipv4Checksum computes the header checksum over a 20-byte IPv4 header
// whose checksum field is zero.
func ipv4Checksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(hdr); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(hdr[i : i+2]))
	}
	for sum > 0xFFFF {
		sum = (sum >> 16) + (sum & 0xFFFF)
	}
	cksum := ^uint16(sum)
	return cksum
}

// PeekName extracts the ICN name from a frame without building a full
// parsed view. Used by the dispatcher to pick a worker before any real
// parsing happens. Returns nil if the frame is not a well-framed ICN
// packet; such frames still reach a worker, which owns the malformed
// counter.
func PeekName(frame []byte) []byte {
	icn, err := FramePayload(frame)
	if err != nil || len(icn) < HeaderLen {
		return nil
	}
	nameLen := int(binary.BigEndian.Uint16(icn[9:11]))
	if HeaderLen+nameLen > len(icn) {
		return nil
	}
	return icn[HeaderLen : HeaderLen+nameLen]
}
