/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	"encoding/binary"
)

// ParsePacket parses the ICN packet in buf into p. It does not allocate;
// the view borrows from buf.
//
// Returns 0 on full success and 1 if the packet ends before the TLV
// section or the first TLV is not the component-offsets tag. A return of 1
// still yields a usable view: the component offsets are recovered by
// scanning the name for separators. A buffer too short to hold the header
// and the whole name also returns 1, but with an empty view.
func ParsePacket(buf []byte, p *Packet) int {
	*p = Packet{}
	if len(buf) < HeaderLen {
		return 1
	}

	p.Hdr.Type = binary.BigEndian.Uint16(buf[0:2])
	p.Hdr.PktLen = binary.BigEndian.Uint16(buf[2:4])
	p.Hdr.HopLimit = buf[4]
	p.Hdr.Flags = binary.BigEndian.Uint16(buf[5:7])
	p.Hdr.HdrLen = binary.BigEndian.Uint16(buf[7:9])
	p.Hdr.NameLen = binary.BigEndian.Uint16(buf[9:11])

	nameEnd := HeaderLen + int(p.Hdr.NameLen)
	if nameEnd > len(buf) {
		return 1
	}
	p.Name = buf[HeaderLen:nameEnd]

	rest := buf[nameEnd:]
	if nameEnd >= int(p.Hdr.PktLen) || len(rest) < 4 {
		scanOffsets(p)
		return 1
	}

	tag := binary.BigEndian.Uint16(rest[0:2])
	length := int(binary.BigEndian.Uint16(rest[2:4]))
	if tag != TlvComponentOffsets || len(rest) < 4+length {
		scanOffsets(p)
		return 1
	}

	p.ComponentNr = length / 2
	if p.ComponentNr > MaxNameComponents {
		p.ComponentNr = MaxNameComponents
	}
	for i := 0; i < p.ComponentNr; i++ {
		p.Offsets[i] = binary.BigEndian.Uint16(rest[4+2*i : 6+2*i])
	}

	// An optional payload TLV follows the offsets TLV.
	rest = rest[4+length:]
	if len(rest) >= 4 {
		plen := int(binary.BigEndian.Uint16(rest[2:4]))
		if 4+plen <= len(rest) {
			p.Payload = rest[4 : 4+plen]
		}
	}
	return 0
}

// scanOffsets recovers the component offsets by scanning the name for
// separators, for packets sent without the offsets TLV. A component ends
// at the byte before the next separator; the final component ends at the
// last byte of the name.
func scanOffsets(p *Packet) {
	p.ComponentNr = 0
	for i := 1; i < len(p.Name); i++ {
		if p.Name[i] != ComponentSep {
			continue
		}
		if p.ComponentNr == MaxNameComponents {
			return
		}
		p.Offsets[p.ComponentNr] = uint16(i - 1)
		p.ComponentNr++
	}
	if len(p.Name) > 0 && p.ComponentNr < MaxNameComponents {
		p.Offsets[p.ComponentNr] = uint16(len(p.Name) - 1)
		p.ComponentNr++
	}
}

// PrefixLen returns the length of the name prefix ending at component k:
// the bytes up to and including the last byte of component k.
func (p *Packet) PrefixLen(k int) int {
	return int(p.Offsets[k]) + 1
}

// EncodePacket serializes an ICN packet with the given type, hop limit,
// name and payload, emitting the component-offsets TLV and, if payload is
// non-nil, a payload TLV. The inverse of ParsePacket for well-formed input.
func EncodePacket(pktType uint16, hopLimit uint8, name []byte, payload []byte) []byte {
	var offsets [MaxNameComponents]uint16
	nOffsets := 0
	for i := 1; i < len(name); i++ {
		if name[i] == ComponentSep && nOffsets < MaxNameComponents {
			offsets[nOffsets] = uint16(i - 1)
			nOffsets++
		}
	}
	if len(name) > 0 && nOffsets < MaxNameComponents {
		offsets[nOffsets] = uint16(len(name) - 1)
		nOffsets++
	}

	total := HeaderLen + len(name) + 4 + 2*nOffsets
	if payload != nil {
		total += 4 + len(payload)
	}

	buf := make([]byte, 0, total)
	var u16 [2]byte
	put := func(v uint16) {
		binary.BigEndian.PutUint16(u16[:], v)
		buf = append(buf, u16[0], u16[1])
	}

	put(pktType)
	put(uint16(total))
	buf = append(buf, hopLimit)
	put(0)             // flags
	put(HeaderLen)     // header length
	put(uint16(len(name)))
	buf = append(buf, name...)

	put(TlvComponentOffsets)
	put(uint16(2 * nOffsets))
	for i := 0; i < nOffsets; i++ {
		put(offsets[i])
	}

	if payload != nil {
		put(TlvPayload)
		put(uint16(len(payload)))
		buf = append(buf, payload...)
	}
	return buf
}
