// Package dhcpmsg contains the DHCPv4 wire format: the fixed BOOTP header, the
// magic cookie, and the option TLVs.
//
// See https://datatracker.ietf.org/doc/html/rfc2131#section-2 and
// https://datatracker.ietf.org/doc/html/rfc2132.
package dhcpmsg

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrMalformed is returned when a datagram is too short to contain the fixed
// header or when an option TLV runs past the end of the buffer.
const ErrMalformed errors.Error = "malformed dhcp message"

// Sizes of the fixed parts of a DHCPv4 message.
const (
	// HeaderLen is the length of the fixed BOOTP header, without the magic
	// cookie.
	HeaderLen = 236

	// HWAddrLen is the length of the chaddr field.
	HWAddrLen = 16

	// ServerNameLen is the length of the sname field.
	ServerNameLen = 64

	// BootFileLen is the length of the file field.
	BootFileLen = 128

	// OptionsOffset is the offset of the first option, right after the magic
	// cookie.
	OptionsOffset = HeaderLen + len(magicCookie)

	// MaxLen is the size of the receive buffer for a single datagram.
	MaxLen = 1500
)

// magicCookie is the marker preceding the option region.
var magicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

// Op is the BOOTP message operation code.
type Op uint8

// Op values.
const (
	OpRequest Op = 1
	OpReply   Op = 2
)

// MsgType is the value of the DHCP message type option.
type MsgType uint8

// MsgType values.
//
// See https://datatracker.ietf.org/doc/html/rfc2132#section-9.6.
const (
	MsgTypeDiscover MsgType = 1
	MsgTypeOffer    MsgType = 2
	MsgTypeRequest  MsgType = 3
	MsgTypeDecline  MsgType = 4
	MsgTypeAck      MsgType = 5
	MsgTypeNak      MsgType = 6
	MsgTypeRelease  MsgType = 7
	MsgTypeInform   MsgType = 8
)

// type check
var _ fmt.Stringer = MsgType(0)

// String implements the [fmt.Stringer] interface for MsgType.
func (t MsgType) String() (s string) {
	switch t {
	case MsgTypeDiscover:
		return "discover"
	case MsgTypeOffer:
		return "offer"
	case MsgTypeRequest:
		return "request"
	case MsgTypeDecline:
		return "decline"
	case MsgTypeAck:
		return "ack"
	case MsgTypeNak:
		return "nak"
	case MsgTypeRelease:
		return "release"
	case MsgTypeInform:
		return "inform"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}
