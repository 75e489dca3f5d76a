package defn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A well-formed packet parses back to the fields it was encoded from.
func TestParseEncodeRoundTrip(t *testing.T) {
	payload := []byte("0123456789")
	buf := EncodePacket(TypeData, 32, []byte("/alu/video/chunk1"), payload)

	var p Packet
	rc := ParsePacket(buf, &p)
	assert.Equal(t, 0, rc)
	assert.Equal(t, TypeData, p.Hdr.Type)
	assert.Equal(t, uint8(32), p.Hdr.HopLimit)
	assert.Equal(t, uint16(len(buf)), p.Hdr.PktLen)
	assert.Equal(t, "/alu/video/chunk1", string(p.Name))
	assert.Equal(t, payload, p.Payload)

	assert.Equal(t, 3, p.ComponentNr)
	assert.Equal(t, len("/alu"), p.PrefixLen(0))
	assert.Equal(t, len("/alu/video"), p.PrefixLen(1))
	assert.Equal(t, len("/alu/video/chunk1"), p.PrefixLen(2))
}

// A packet truncated before the TLV section still yields a usable view:
// rc is 1 and the offsets come from scanning the name.
func TestParseTruncatedBeforeTlv(t *testing.T) {
	full := EncodePacket(TypeInterest, 64, []byte("/a/b"), nil)
	truncated := full[:HeaderLen+4] // header + name only

	var p Packet
	rc := ParsePacket(truncated, &p)
	assert.Equal(t, 1, rc)
	assert.Equal(t, "/a/b", string(p.Name))
	assert.Equal(t, 2, p.ComponentNr)
	assert.Equal(t, 2, p.PrefixLen(0))
	assert.Equal(t, 4, p.PrefixLen(1))
	assert.Nil(t, p.Payload)
}

// Single-component names have exactly one offset covering the whole name.
func TestParseSingleComponent(t *testing.T) {
	var p Packet
	rc := ParsePacket(EncodePacket(TypeInterest, 64, []byte("/a"), nil), &p)
	assert.Equal(t, 0, rc)
	assert.Equal(t, 1, p.ComponentNr)
	assert.Equal(t, 2, p.PrefixLen(0))
}

// A buffer shorter than the fixed header is rejected without a view.
func TestParseShortBuffer(t *testing.T) {
	var p Packet
	assert.Equal(t, 1, ParsePacket([]byte{0, 0, 0}, &p))
	assert.Empty(t, p.Name)
}

// FramePayload accepts only IPv4 frames carrying the ICN protocol.
func TestFramePayload(t *testing.T) {
	src, err := ParseMacAddr("02:00:00:00:00:01")
	require.NoError(t, err)
	dst, err := ParseMacAddr("02:00:00:00:00:02")
	require.NoError(t, err)

	icn := EncodePacket(TypeInterest, 64, []byte("/a/b"), nil)
	frame := BuildFrame(dst, src, 0xDEADBEEF, icn)

	got, err := FramePayload(frame)
	require.NoError(t, err)
	assert.Equal(t, icn, got)

	// non-IPv4 ethertype
	arp := make([]byte, len(frame))
	copy(arp, frame)
	arp[12], arp[13] = 0x08, 0x06
	_, err = FramePayload(arp)
	assert.ErrorIs(t, err, ErrMalformed)

	// IPv4 but not ICN
	tcp := make([]byte, len(frame))
	copy(tcp, frame)
	tcp[EthHdrLen+9] = 6
	_, err = FramePayload(tcp)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = FramePayload(frame[:10])
	assert.ErrorIs(t, err, ErrMalformed)
}

// RewriteMacs stamps new addresses in place and nothing else.
func TestRewriteMacs(t *testing.T) {
	src, _ := ParseMacAddr("02:00:00:00:00:01")
	dst, _ := ParseMacAddr("02:00:00:00:00:02")
	icn := EncodePacket(TypeData, 64, []byte("/a"), []byte("x"))
	frame := BuildFrame(dst, src, 1, icn)

	newSrc, _ := ParseMacAddr("02:00:00:00:00:03")
	newDst, _ := ParseMacAddr("02:00:00:00:00:04")
	RewriteMacs(frame, newDst, newSrc)

	assert.Equal(t, newDst[:], frame[0:6])
	assert.Equal(t, newSrc[:], frame[6:12])
	payload, err := FramePayload(frame)
	require.NoError(t, err)
	assert.Equal(t, icn, payload)
}

// PeekName extracts the name without a full parse and refuses frames
// that are not well-framed ICN packets.
func TestPeekName(t *testing.T) {
	src, _ := ParseMacAddr("02:00:00:00:00:01")
	dst, _ := ParseMacAddr("02:00:00:00:00:02")
	frame := BuildFrame(dst, src, 0, EncodePacket(TypeInterest, 64, []byte("/a/b/c"), nil))
	assert.Equal(t, "/a/b/c", string(PeekName(frame)))

	assert.Nil(t, PeekName(frame[:20]))
}

// Zero and nonzero addresses are told apart; parsing rejects junk.
func TestMacAddr(t *testing.T) {
	var zero MacAddr
	assert.True(t, zero.IsZero())

	addr, err := ParseMacAddr("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.False(t, addr.IsZero())
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", addr.String())

	_, err = ParseMacAddr("not-a-mac")
	assert.Error(t, err)
}
