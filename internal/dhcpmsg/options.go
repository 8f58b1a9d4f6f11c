package dhcpmsg

import (
	"fmt"
	"math"
	"net"
	"net/netip"
)

// OptionCode is the code of a DHCP option.
type OptionCode uint8

// OptionCode values used by the server.
const (
	OptionPad         OptionCode = 0
	OptionRequestedIP OptionCode = 50
	OptionLeaseTime   OptionCode = 51
	OptionMessageType OptionCode = 53
	OptionServerID    OptionCode = 54
	OptionEnd         OptionCode = 255
)

// String implements the [fmt.Stringer] interface for OptionCode.
func (c OptionCode) String() (s string) {
	switch c {
	case OptionPad:
		return "pad"
	case OptionRequestedIP:
		return "requested_ip"
	case OptionLeaseTime:
		return "lease_time"
	case OptionMessageType:
		return "message_type"
	case OptionServerID:
		return "server_id"
	case OptionEnd:
		return "end"
	default:
		return fmt.Sprintf("option(%d)", uint8(c))
	}
}

// Option is a single DHCP option.  Data must not be longer than 255 bytes.
type Option struct {
	Data []byte
	Code OptionCode
}

// ParsedOptions are the options of a request the server acts upon.  An
// invalid [netip.Addr] means the option is absent.
type ParsedOptions struct {
	// ServerID is the value of the server identifier option.
	ServerID netip.Addr

	// RequestedIP is the value of the requested IP address option.
	RequestedIP netip.Addr

	// MessageType is the value of the DHCP message type option.  It's only
	// meaningful if HasMessageType is true.
	MessageType MsgType

	// HasMessageType is true if the message type option is present.
	HasMessageType bool
}

// ParseOptions walks the option TLVs in region, which should be the result of
// [OptionRegion], and returns the options of interest.  A later option
// overrides an earlier one with the same code.  Options of interest with an
// unexpected length are ignored.  It returns [ErrMalformed] if an option runs
// past the end of region.
func ParseOptions(region []byte) (opts *ParsedOptions, err error) {
	opts = &ParsedOptions{}
	err = walkOptions(region, func(code OptionCode, data []byte) {
		switch code {
		case OptionMessageType:
			if len(data) == 1 {
				opts.MessageType, opts.HasMessageType = MsgType(data[0]), true
			}
		case OptionServerID:
			if len(data) == net.IPv4len {
				opts.ServerID = netip.AddrFrom4([4]byte(data))
			}
		case OptionRequestedIP:
			if len(data) == net.IPv4len {
				opts.RequestedIP = netip.AddrFrom4([4]byte(data))
			}
		default:
			// Go on.
		}
	})
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// ParseAll returns all options within region in their order of appearance,
// excluding pad and end.  The data of the returned options refers to region.
func ParseAll(region []byte) (opts []Option, err error) {
	err = walkOptions(region, func(code OptionCode, data []byte) {
		opts = append(opts, Option{Code: code, Data: data})
	})
	if err != nil {
		return nil, err
	}

	return opts, nil
}

// walkOptions calls f for each option within region until the end option or
// the end of region.  It never reads past region.
func walkOptions(region []byte, f func(code OptionCode, data []byte)) (err error) {
	for i := 0; i < len(region); {
		code := OptionCode(region[i])
		switch code {
		case OptionEnd:
			return nil
		case OptionPad:
			i++

			continue
		}

		if i+1 >= len(region) {
			return fmt.Errorf("option %s at %d: no length: %w", code, i, ErrMalformed)
		}

		l := int(region[i+1])
		start := i + 2
		if start+l > len(region) {
			return fmt.Errorf("option %s at %d: length %d: %w", code, i, l, ErrMalformed)
		}

		f(code, region[start:start+l])
		i = start + l
	}

	return nil
}

// AppendMagicCookie appends the magic cookie to b.
func AppendMagicCookie(b []byte) (res []byte) {
	return append(b, magicCookie[:]...)
}

// AppendOption appends the option with the given code and data to b.  data
// must not be longer than 255 bytes.
func AppendOption(b []byte, code OptionCode, data []byte) (res []byte) {
	if len(data) > math.MaxUint8 {
		panic(fmt.Errorf("option %s: data length %d is too long", code, len(data)))
	}

	b = append(b, byte(code), byte(len(data)))

	return append(b, data...)
}

// AppendEnd appends the end option to b.
func AppendEnd(b []byte) (res []byte) {
	return append(b, byte(OptionEnd))
}

// Response is a decoded DHCP response: the header and the options to attach,
// in wire order.
type Response struct {
	// Header is the fixed header of the response.  It must not be nil.
	Header *Message

	// Options are written in order after the magic cookie and before the end
	// option.
	Options []Option
}

// Encode returns the wire representation of resp: the header, the magic
// cookie, the options, and the end option.
func (resp *Response) Encode() (b []byte) {
	l := OptionsOffset + 1
	for _, o := range resp.Options {
		l += 2 + len(o.Data)
	}

	b = make([]byte, 0, l)
	b = resp.Header.AppendTo(b)
	b = AppendMagicCookie(b)
	for _, o := range resp.Options {
		b = AppendOption(b, o.Code, o.Data)
	}

	return AppendEnd(b)
}

// Type returns the message type of resp, if it has one.
func (resp *Response) Type() (typ MsgType, ok bool) {
	for _, o := range resp.Options {
		if o.Code == OptionMessageType && len(o.Data) == 1 {
			return MsgType(o.Data[0]), true
		}
	}

	return 0, false
}
