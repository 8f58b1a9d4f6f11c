package dhcpsvc

import (
	"fmt"
	"log/slog"
	"math"
	"net/netip"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/golibs/validate"
)

// DefaultLeaseDuration is the lease time sent to clients unless configured
// otherwise, which is 30 days.
const DefaultLeaseDuration = 30 * timeutil.Day

// maxLeaseDuration is the longest lease time representable in the lease time
// option.
const maxLeaseDuration = math.MaxUint32 * time.Second

// Config is the configuration for the message engine.
type Config struct {
	// Logger is used to log the processing of messages.  It must not be nil.
	Logger *slog.Logger

	// Metrics collects the statistics of the engine.  It must not be nil.
	Metrics Metrics

	// Clock is used to measure the processing time.  It must not be nil.
	Clock timeutil.Clock

	// ServerID is the address this server identifies itself with in the
	// server identifier option.  It must be a valid IPv4 address not within
	// Pool.
	ServerID netip.Addr

	// Pool is the ordered list of addresses to lease.  It must not be empty
	// and must only contain distinct IPv4 addresses.
	Pool []netip.Addr

	// LeaseDuration is the lease time sent to clients.  It must be positive
	// and fit into 32 bits of seconds.
	LeaseDuration time.Duration
}

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the [validate.Interface] interface for *Config.
func (conf *Config) Validate() (err error) {
	if conf == nil {
		return errNilConfig
	}

	errs := []error{
		validate.NotNil("Logger", conf.Logger),
		validate.NotNilInterface("Metrics", conf.Metrics),
		validate.NotNilInterface("Clock", conf.Clock),
		validate.Positive("LeaseDuration", conf.LeaseDuration),
	}

	if conf.LeaseDuration > maxLeaseDuration {
		errs = append(errs, newMustErr("LeaseDuration", "fit into 32 bits of seconds", conf.LeaseDuration))
	}

	if !conf.ServerID.Is4() {
		errs = append(errs, newMustErr("ServerID", "be a valid ipv4", conf.ServerID))
	}

	return errors.Join(append(errs, validatePool(conf.Pool, conf.ServerID)...)...)
}

// validatePool returns the errors found in the pool addresses.
func validatePool(pool []netip.Addr, serverID netip.Addr) (errs []error) {
	if len(pool) == 0 {
		return []error{fmt.Errorf("Pool: %w", errors.ErrEmptyValue)}
	}

	seen := make(map[netip.Addr]struct{}, len(pool))
	for i, addr := range pool {
		switch {
		case !addr.Is4():
			errs = append(errs, newMustErr(fmt.Sprintf("Pool[%d]", i), "be a valid ipv4", addr))
		case addr == serverID:
			errs = append(errs, newMustErr(fmt.Sprintf("Pool[%d]", i), "not be the server id", addr))
		default:
			if _, ok := seen[addr]; ok {
				errs = append(errs, fmt.Errorf("Pool[%d]: %w: %s", i, errors.ErrDuplicated, addr))
			}

			seen[addr] = struct{}{}
		}
	}

	return errs
}
