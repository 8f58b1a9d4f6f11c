package configmgr

import (
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/golibs/validate"
)

// Configuration Structures

// Config is the top-level on-disk configuration structure.
type Config struct {
	// Log is the logging configuration.
	Log *LogConfig `yaml:"log"`

	// Prometheus is the metrics configuration.
	Prometheus *PrometheusConfig `yaml:"prometheus"`

	// Pool is the ordered list of the addresses to lease.
	Pool []netip.Addr `yaml:"pool"`

	// ServerID is the address sent in the server identifier option.
	ServerID netip.Addr `yaml:"server_id"`

	// ListenAddr is the UDP address to receive DHCP messages on.
	ListenAddr netip.AddrPort `yaml:"listen_addr"`

	// LeaseDuration is the lease time sent to clients.
	LeaseDuration timeutil.Duration `yaml:"lease_duration"`

	// IdleTimeout is the time without messages after which the server stops.
	// Zero disables it.
	IdleTimeout timeutil.Duration `yaml:"idle_timeout"`
}

// LogConfig is the on-disk logging configuration.
type LogConfig struct {
	// File is the destination of the log.  It's either empty, "stdout",
	// "stderr", or a path to a file rotated according to the other fields.
	File string `yaml:"file"`

	// MaxSize is the maximum size of the log file before rotation, in
	// megabytes.
	MaxSize int `yaml:"max_size"`

	// MaxBackups is the number of rotated files to keep.  Zero means all.
	MaxBackups int `yaml:"max_backups"`

	// MaxAge is the number of days to keep the rotated files.  Zero means
	// forever.
	MaxAge int `yaml:"max_age"`

	// Compress defines if the rotated files should be compressed with gzip.
	Compress bool `yaml:"compress"`

	// Verbose enables the debug logging.
	Verbose bool `yaml:"verbose"`
}

// PrometheusConfig is the on-disk metrics configuration.
type PrometheusConfig struct {
	// ListenAddr is the TCP address to serve the metrics on.
	ListenAddr netip.AddrPort `yaml:"listen_addr"`

	// Namespace is prepended to the names of all the metrics.
	Namespace string `yaml:"namespace"`

	// Enabled defines if the metrics are served.
	Enabled bool `yaml:"enabled"`
}

// maxLeaseDuration is the longest lease time representable in the lease time
// option.
const maxLeaseDuration = math.MaxUint32 * time.Second

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the [validate.Interface] interface for *Config.  It
// returns all the errors found.
func (c *Config) Validate() (err error) {
	if c == nil {
		return errNoConf
	}

	errs := []error{
		validateServerID(c.ServerID),
	}
	errs = append(errs, validatePool(c.Pool, c.ServerID)...)

	switch d := c.LeaseDuration; {
	case time.Duration(d) <= 0:
		errs = append(errs, newErrNotPositive("lease_duration", d))
	case time.Duration(d) > maxLeaseDuration:
		errs = append(errs, fmt.Errorf("lease_duration: must not exceed %s", maxLeaseDuration))
	}

	if c.IdleTimeout < 0 {
		errs = append(errs, newErrNegative("idle_timeout", c.IdleTimeout))
	}

	if !c.ListenAddr.IsValid() {
		errs = append(errs, fmt.Errorf("listen_addr: %w", errors.ErrNoValue))
	}

	// Keep this in the same order as the fields in the config.
	validators := []struct {
		validate func() (err error)
		name     string
	}{{
		validate: c.Log.validate,
		name:     "log",
	}, {
		validate: c.Prometheus.validate,
		name:     "prometheus",
	}}

	for _, v := range validators {
		err = v.validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v.name, err))
		}
	}

	return errors.Join(errs...)
}

// validateServerID returns an error if addr can't be used as the server
// identifier.
func validateServerID(addr netip.Addr) (err error) {
	if !addr.Is4() {
		return fmt.Errorf("server_id: not an ipv4 address: %q", addr)
	}

	return nil
}

// validatePool returns the errors about the pool addresses.
func validatePool(pool []netip.Addr, serverID netip.Addr) (errs []error) {
	if len(pool) == 0 {
		return []error{fmt.Errorf("pool: %w", errors.ErrEmptyValue)}
	}

	seen := make(map[netip.Addr]struct{}, len(pool))
	for i, addr := range pool {
		switch {
		case !addr.Is4():
			errs = append(errs, fmt.Errorf("pool: at index %d: not an ipv4 address: %q", i, addr))
		case addr == serverID:
			errs = append(errs, fmt.Errorf("pool: at index %d: server_id %s in pool", i, addr))
		default:
			if _, ok := seen[addr]; ok {
				errs = append(errs, fmt.Errorf("pool: at index %d: %w: %s", i, errors.ErrDuplicated, addr))
			}

			seen[addr] = struct{}{}
		}
	}

	return errs
}

// validate returns an error if the logging configuration is invalid.
func (c *LogConfig) validate() (err error) {
	switch {
	case c == nil:
		return errNoConf
	case c.MaxSize <= 0:
		return newErrNotPositive("max_size", c.MaxSize)
	case c.MaxBackups < 0:
		return newErrNegative("max_backups", c.MaxBackups)
	case c.MaxAge < 0:
		return newErrNegative("max_age", c.MaxAge)
	default:
		return nil
	}
}

// validate returns an error if the metrics configuration is invalid.
func (c *PrometheusConfig) validate() (err error) {
	switch {
	case c == nil:
		return errNoConf
	case !c.Enabled:
		return nil
	case !c.ListenAddr.IsValid():
		return fmt.Errorf("listen_addr: %w", errors.ErrNoValue)
	default:
		return validate.NotEmpty("namespace", c.Namespace)
	}
}
