// Package configmgr defines the on-disk configuration of the DHCP server along
// with its defaults.
package configmgr

import (
	"fmt"
	"io"
	"io/fs"
	"net/netip"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/dhcpsvc"
	"github.com/berry2bd/DHCP-Server/internal/metrics"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the name of the configuration file used unless
// configured otherwise.
const DefaultFileName = "dhcpserver.yaml"

// Default returns the configuration used when there is no configuration file.
// Each call returns a new value.
func Default() (c *Config) {
	return &Config{
		Log: &LogConfig{
			MaxSize: 100,
		},
		Prometheus: &PrometheusConfig{
			ListenAddr: netip.MustParseAddrPort("127.0.0.1:9617"),
			Namespace:  metrics.DefaultNamespace,
		},
		Pool: []netip.Addr{
			netip.MustParseAddr("192.168.1.1"),
			netip.MustParseAddr("192.168.1.2"),
			netip.MustParseAddr("192.168.1.3"),
			netip.MustParseAddr("192.168.1.4"),
		},
		ServerID:      netip.MustParseAddr("192.168.1.0"),
		ListenAddr:    netip.MustParseAddrPort("0.0.0.0:67"),
		LeaseDuration: timeutil.Duration(dhcpsvc.DefaultLeaseDuration),
	}
}

// Read reads and decodes the configuration from the file with the given name
// over the defaults.  A missing file isn't an error, in which case exists is
// false and c is [Default].  c isn't validated.
func Read(fileName string) (c *Config, exists bool, err error) {
	defer func() { err = errors.Annotate(err, "reading config: %w") }()

	c = Default()
	f, err := os.Open(fileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, false, nil
		}

		// Don't wrap the error, because it's informative enough as is.
		return nil, false, err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	err = dec.Decode(c)
	if errors.Is(err, io.EOF) {
		// An empty file means the defaults.
		return c, true, nil
	} else if err != nil {
		return nil, true, fmt.Errorf("decoding %q: %w", fileName, err)
	}

	return c, true, nil
}

// Validate returns an error if the configuration file with the given name
// can't be read or is invalid.
func Validate(fileName string) (err error) {
	c, _, err := Read(fileName)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}

	err = c.Validate()
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	return nil
}
