package dhcpmsg

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// HardwareAddr is the client hardware address as carried in the chaddr field,
// zero-padded beyond the actual address length.
type HardwareAddr [HWAddrLen]byte

// NewHardwareAddr returns mac padded to [HWAddrLen] bytes.  Bytes beyond
// [HWAddrLen] are dropped.
func NewHardwareAddr(mac net.HardwareAddr) (hw HardwareAddr) {
	copy(hw[:], mac)

	return hw
}

// MAC returns the first n bytes of hw as a hardware address.  n is clamped to
// [HWAddrLen].
func (hw HardwareAddr) MAC(n uint8) (mac net.HardwareAddr) {
	return net.HardwareAddr(hw[:min(int(n), HWAddrLen)])
}

// Message is the fixed-layout header of a DHCPv4 message.  All address fields
// are IPv4 addresses; the zero [netip.Addr] is encoded as 0.0.0.0.
type Message struct {
	ClientIP     netip.Addr
	YourIP       netip.Addr
	ServerIP     netip.Addr
	GatewayIP    netip.Addr
	ServerName   [ServerNameLen]byte
	BootFile     [BootFileLen]byte
	ClientHWAddr HardwareAddr
	XID          uint32
	Secs         uint16
	Flags        uint16
	Op           Op
	HWType       uint8
	HWAddrLen    uint8
	Hops         uint8
}

// Decode parses the fixed header of a DHCPv4 message from b.  The magic cookie
// isn't validated.  It returns [ErrMalformed] if b is shorter than
// [HeaderLen].
func Decode(b []byte) (m *Message, err error) {
	if len(b) < HeaderLen {
		return nil, fmt.Errorf("header of %d bytes: %w", len(b), ErrMalformed)
	}

	m = &Message{
		Op:        Op(b[0]),
		HWType:    b[1],
		HWAddrLen: b[2],
		Hops:      b[3],
		XID:       binary.BigEndian.Uint32(b[4:8]),
		Secs:      binary.BigEndian.Uint16(b[8:10]),
		Flags:     binary.BigEndian.Uint16(b[10:12]),
		ClientIP:  netip.AddrFrom4([4]byte(b[12:16])),
		YourIP:    netip.AddrFrom4([4]byte(b[16:20])),
		ServerIP:  netip.AddrFrom4([4]byte(b[20:24])),
		GatewayIP: netip.AddrFrom4([4]byte(b[24:28])),
	}

	copy(m.ClientHWAddr[:], b[28:44])
	copy(m.ServerName[:], b[44:108])
	copy(m.BootFile[:], b[108:HeaderLen])

	return m, nil
}

// OptionRegion returns the part of the datagram b following the header and
// the magic cookie.  It's empty if b is too short to contain any options.
func OptionRegion(b []byte) (region []byte) {
	if len(b) <= OptionsOffset {
		return nil
	}

	return b[OptionsOffset:]
}

// AppendTo appends the [HeaderLen] bytes of the encoded header to b and
// returns the result.
func (m *Message) AppendTo(b []byte) (res []byte) {
	b = append(b, byte(m.Op), m.HWType, m.HWAddrLen, m.Hops)
	b = binary.BigEndian.AppendUint32(b, m.XID)
	b = binary.BigEndian.AppendUint16(b, m.Secs)
	b = binary.BigEndian.AppendUint16(b, m.Flags)
	b = appendAddr(b, m.ClientIP)
	b = appendAddr(b, m.YourIP)
	b = appendAddr(b, m.ServerIP)
	b = appendAddr(b, m.GatewayIP)
	b = append(b, m.ClientHWAddr[:]...)
	b = append(b, m.ServerName[:]...)

	return append(b, m.BootFile[:]...)
}

// appendAddr appends the four bytes of addr to b.  Anything that isn't an
// IPv4 address is written as 0.0.0.0.
func appendAddr(b []byte, addr netip.Addr) (res []byte) {
	if !addr.Is4() {
		return append(b, 0, 0, 0, 0)
	}

	a4 := addr.As4()

	return append(b, a4[:]...)
}

// Reply returns a copy of m with the operation set to [OpReply], which is how
// every response header starts.
func (m *Message) Reply() (resp *Message) {
	resp = &Message{}
	*resp = *m
	resp.Op = OpReply

	return resp
}

// HWAddr returns the client hardware address trimmed to the declared length.
func (m *Message) HWAddr() (mac net.HardwareAddr) {
	return m.ClientHWAddr.MAC(m.HWAddrLen)
}
