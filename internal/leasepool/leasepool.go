// Package leasepool contains the fixed-capacity table of DHCP leases.
package leasepool

import (
	"net/netip"
	"slices"

	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
)

// Lease is a binding between a hardware address and an IPv4 address.
type Lease struct {
	// IP is the address of the lease.  It's always one of the pool
	// addresses.
	IP netip.Addr

	// HWAddr is the hardware address of the client holding the lease.  It's
	// only meaningful while InUse is true.
	HWAddr dhcpmsg.HardwareAddr

	// InUse is true if the lease is bound to HWAddr.
	InUse bool
}

// noPending is the value of [Pool.pending] when no lease waits for release.
const noPending = -1

// Pool is an ordered arena of leases, one per configured address.  Leases are
// addressed by their index and never escape the pool by reference.  Pool is
// not safe for concurrent use.
type Pool struct {
	// addrs are the configured addresses, in pool order.
	addrs []netip.Addr

	// leases has the same length as addrs.
	leases []Lease

	// pending is the index of the lease released while the pool was full, or
	// [noPending].
	pending int
}

// New returns a pool with a free lease for each of addrs.  addrs must not
// contain duplicates.
func New(addrs []netip.Addr) (p *Pool) {
	p = &Pool{
		addrs:  slices.Clone(addrs),
		leases: make([]Lease, len(addrs)),
	}
	p.Reset()

	return p
}

// Reset frees all the leases and drops the pending release.
func (p *Pool) Reset() {
	for i, addr := range p.addrs {
		p.leases[i] = Lease{IP: addr}
	}

	p.pending = noPending
}

// Len returns the capacity of the pool.
func (p *Pool) Len() (n int) {
	return len(p.leases)
}

// AddressAt returns the configured address of the lease at idx.  idx must be
// in [0, p.Len()).
func (p *Pool) AddressAt(idx int) (addr netip.Addr) {
	return p.addrs[idx]
}

// Find returns the lease in use by hw, if any.
func (p *Pool) Find(hw dhcpmsg.HardwareAddr) (l Lease, ok bool) {
	idx := p.indexOf(hw)
	if idx < 0 {
		return Lease{}, false
	}

	return p.leases[idx], true
}

// indexOf returns the index of the lease in use by hw or -1.
func (p *Pool) indexOf(hw dhcpmsg.HardwareAddr) (idx int) {
	return slices.IndexFunc(p.leases, func(l Lease) (ok bool) {
		return l.InUse && l.HWAddr == hw
	})
}

// HasFreeSlot returns true if at least one lease isn't in use.
func (p *Pool) HasFreeSlot() (ok bool) {
	_, ok = p.FirstFree()

	return ok
}

// FirstFree returns the index of the first lease not in use.
func (p *Pool) FirstFree() (idx int, ok bool) {
	idx = slices.IndexFunc(p.leases, func(l Lease) (inUse bool) { return !l.InUse })

	return idx, idx >= 0
}

// InUse returns the number of leases in use.
func (p *Pool) InUse() (n int) {
	for _, l := range p.leases {
		if l.InUse {
			n++
		}
	}

	return n
}

// Allocate binds the first free lease to hw and ip.  ok is false if the pool
// is full.
func (p *Pool) Allocate(hw dhcpmsg.HardwareAddr, ip netip.Addr) (l Lease, ok bool) {
	idx, ok := p.FirstFree()
	if !ok {
		return Lease{}, false
	}

	p.leases[idx] = Lease{
		IP:     ip,
		HWAddr: hw,
		InUse:  true,
	}

	return p.leases[idx], true
}

// Release handles the release of the lease held by hw.  The lease is only
// freed if the pool is full at the moment, in which case it's also recorded as
// pending until [Pool.ClearPending].  Otherwise the lease stays in use.  freed
// is true if the lease has been freed.
func (p *Pool) Release(hw dhcpmsg.HardwareAddr) (freed bool) {
	idx := p.indexOf(hw)
	if idx < 0 || p.HasFreeSlot() {
		return false
	}

	p.leases[idx].InUse = false
	p.pending = idx

	return true
}

// ClearPending frees the lease recorded by [Pool.Release], whether or not it
// has been allocated again since, and forgets it.  cleared is false if nothing
// was pending.
func (p *Pool) ClearPending() (cleared bool) {
	if p.pending == noPending {
		return false
	}

	p.leases[p.pending].InUse = false
	p.pending = noPending

	return true
}

// Pending returns the index of the lease waiting for [Pool.ClearPending].
func (p *Pool) Pending() (idx int, ok bool) {
	return p.pending, p.pending != noPending
}

// Leases returns a copy of all the leases in pool order.
func (p *Pool) Leases() (ls []Lease) {
	return slices.Clone(p.leases)
}
