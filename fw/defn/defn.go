/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package defn provides the ICN wire format: the fixed packet header, the
// parsed packet view with its per-prefix hash cache, and the Ethernet/IPv4
// framing carrying ICN packets between faces.
package defn

import "errors"

// Packet types carried in the ICN header.
const (
	TypeInterest uint16 = 0x0000
	TypeData     uint16 = 0x0001
	TypeControl  uint16 = 0x0002
)

// Name bounds. MaxNameLen is sized so a PIT entry fits in one cache line.
const (
	MaxNameLen        = 33
	MaxNameComponents = 16
)

// ComponentSep separates name components; CommandSep separates the fields
// of a control-plane FIB update command.
const (
	ComponentSep = byte('/')
	CommandSep   = byte(':')
)

// HeaderLen is the size of the fixed ICN header, including the name length
// field. The name starts immediately after.
const HeaderLen = 11

// TLV tags following the name. Tags and lengths are 2+2 bytes, big-endian.
const (
	TlvComponentOffsets uint16 = 0x0001
	TlvSegmentIds       uint16 = 0x0002
	TlvInterestNonce    uint16 = 0x0003
	TlvPayload          uint16 = 0x0004
)

// IPProtoICN is the IPv4 protocol number carrying ICN packets. 253 is
// assigned by IANA to research and experimentation.
const IPProtoICN = 253

// FaceID identifies a logical next hop. The face bitmask in a PIT entry is
// 64 bits wide, bounding the number of faces.
type FaceID uint8

// MaxFaces is the number of addressable faces.
const MaxFaces = 64

// ErrMalformed indicates a frame or packet that cannot be parsed far enough
// to be forwarded.
var ErrMalformed = errors.New("malformed packet")

// Header is the fixed ICN header. All fields are big-endian on the wire.
type Header struct {
	Type     uint16 // TypeInterest, TypeData or TypeControl
	PktLen   uint16 // total packet length, header included
	HopLimit uint8
	Flags    uint16
	HdrLen   uint16
	NameLen  uint16
}

// Packet is a parsed view over an ICN packet. It borrows from the input
// buffer and caches the CRC32 hash of every name prefix so that a
// longest-prefix-match walk never hashes the same bytes twice.
type Packet struct {
	Hdr  Header
	Name []byte // borrowed from the input buffer

	// Offsets holds, for each component, the byte index of its last
	// byte, so that Offsets[k]+1 is the length of the name prefix
	// ending at component k. ComponentNr is the number of valid
	// entries.
	Offsets     [MaxNameComponents]uint16
	ComponentNr int

	Payload []byte // borrowed; nil if absent or truncated

	// Crc caches per-prefix hashes: Crc[k] is the hash of the prefix
	// ending at component k, Crc[ComponentNr] the hash of the full name.
	Crc [MaxNameComponents + 1]uint32
}
