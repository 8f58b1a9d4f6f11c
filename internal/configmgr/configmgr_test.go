package configmgr_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes data into a new configuration file and returns its path.
func writeConfig(tb testing.TB, data string) (fileName string) {
	tb.Helper()

	fileName = filepath.Join(tb.TempDir(), configmgr.DefaultFileName)
	require.NoError(tb, os.WriteFile(fileName, []byte(data), 0o600))

	return fileName
}

func TestDefault(t *testing.T) {
	t.Parallel()

	c := configmgr.Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 30*timeutil.Day, time.Duration(c.LeaseDuration))
	assert.Zero(t, c.IdleTimeout)
	assert.Len(t, c.Pool, 4)
	assert.False(t, c.Prometheus.Enabled)

	// Each call returns a distinct value.
	c.Pool[0] = netip.MustParseAddr("10.0.0.1")
	assert.NotEqual(t, c.Pool[0], configmgr.Default().Pool[0])
}

func TestRead(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		c, exists, err := configmgr.Read(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)

		assert.False(t, exists)
		assert.Equal(t, configmgr.Default(), c)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		c, exists, err := configmgr.Read(writeConfig(t, ""))
		require.NoError(t, err)

		assert.True(t, exists)
		assert.Equal(t, configmgr.Default(), c)
	})

	t.Run("partial", func(t *testing.T) {
		t.Parallel()

		const data = "server_id: 10.0.0.254\n" +
			"pool:\n" +
			"  - 10.0.0.1\n" +
			"  - 10.0.0.2\n" +
			"idle_timeout: 30s\n" +
			"log:\n" +
			"  verbose: true\n" +
			"prometheus:\n" +
			"  enabled: true\n"

		c, exists, err := configmgr.Read(writeConfig(t, data))
		require.NoError(t, err)
		require.True(t, exists)
		require.NoError(t, c.Validate())

		want := configmgr.Default()
		want.ServerID = netip.MustParseAddr("10.0.0.254")
		want.Pool = []netip.Addr{
			netip.MustParseAddr("10.0.0.1"),
			netip.MustParseAddr("10.0.0.2"),
		}
		want.IdleTimeout = timeutil.Duration(30 * time.Second)
		want.Log.Verbose = true
		want.Prometheus.Enabled = true

		assert.Equal(t, want, c)
	})

	t.Run("unknown_field", func(t *testing.T) {
		t.Parallel()

		_, _, err := configmgr.Read(writeConfig(t, "unknown: 1\n"))
		assert.Error(t, err)
	})

	t.Run("bad_addr", func(t *testing.T) {
		t.Parallel()

		_, _, err := configmgr.Read(writeConfig(t, "server_id: not-an-ip\n"))
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		modify     func(c *configmgr.Config)
		name       string
		wantErrMsg string
	}{{
		modify:     func(_ *configmgr.Config) {},
		name:       "valid",
		wantErrMsg: "",
	}, {
		modify: func(c *configmgr.Config) {
			c.Pool = nil
		},
		name:       "empty_pool",
		wantErrMsg: "pool: empty value",
	}, {
		modify: func(c *configmgr.Config) {
			c.Pool = append(c.Pool, c.Pool[0], c.ServerID, netip.MustParseAddr("2001:db8::1"))
		},
		name: "bad_pool",
		wantErrMsg: "pool: at index 4: duplicated value: 192.168.1.1\n" +
			"pool: at index 5: server_id 192.168.1.0 in pool\n" +
			`pool: at index 6: not an ipv4 address: "2001:db8::1"`,
	}, {
		modify: func(c *configmgr.Config) {
			c.ServerID = netip.Addr{}
		},
		name:       "no_server_id",
		wantErrMsg: `server_id: not an ipv4 address: "invalid IP"`,
	}, {
		modify: func(c *configmgr.Config) {
			c.LeaseDuration = timeutil.Duration(1 << 32 * time.Second)
		},
		name:       "long_lease",
		wantErrMsg: "lease_duration: must not exceed 1193046h28m15s",
	}, {
		modify: func(c *configmgr.Config) {
			c.ListenAddr = netip.AddrPort{}
		},
		name:       "no_listen_addr",
		wantErrMsg: "listen_addr: no value",
	}, {
		modify: func(c *configmgr.Config) {
			c.Log = nil
		},
		name:       "no_log",
		wantErrMsg: "log: configuration not found",
	}, {
		modify: func(c *configmgr.Config) {
			c.Log.MaxBackups = -1
		},
		name:       "negative_backups",
		wantErrMsg: "log: max_backups: negative value, got -1",
	}, {
		modify: func(c *configmgr.Config) {
			c.Prometheus.Enabled = true
			c.Prometheus.ListenAddr = netip.AddrPort{}
		},
		name:       "prometheus_no_addr",
		wantErrMsg: "prometheus: listen_addr: no value",
	}, {
		modify: func(c *configmgr.Config) {
			c.Prometheus.ListenAddr = netip.AddrPort{}
		},
		name:       "prometheus_disabled",
		wantErrMsg: "",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := configmgr.Default()
			tc.modify(c)

			testutil.AssertErrorMsg(t, tc.wantErrMsg, c.Validate())
		})
	}

	t.Run("negative_idle_timeout", func(t *testing.T) {
		t.Parallel()

		c := configmgr.Default()
		c.IdleTimeout = timeutil.Duration(-time.Second)

		assert.ErrorContains(t, c.Validate(), "idle_timeout: negative value")
	})

	t.Run("not_positive", func(t *testing.T) {
		t.Parallel()

		c := configmgr.Default()
		c.LeaseDuration = 0
		c.Log.MaxSize = 0

		err := c.Validate()
		require.ErrorIs(t, err, errors.ErrNotPositive)

		assert.ErrorContains(t, err, "lease_duration")
		assert.ErrorContains(t, err, "log: max_size")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, configmgr.Validate(filepath.Join(t.TempDir(), "none.yaml")))

	err := configmgr.Validate(writeConfig(t, "pool: []\n"))
	testutil.AssertErrorMsg(t, "validating config: pool: empty value", err)

	err = configmgr.Validate(writeConfig(t, "pool: 1\n"))
	assert.Error(t, err)
}
