package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNewLogOutput(t *testing.T) {
	t.Parallel()

	assert.Same(t, os.Stdout, newLogOutput(&configmgr.LogConfig{File: ""}))
	assert.Same(t, os.Stdout, newLogOutput(&configmgr.LogConfig{File: outputStdout}))
	assert.Same(t, os.Stderr, newLogOutput(&configmgr.LogConfig{File: outputStderr}))

	fileName := filepath.Join(t.TempDir(), "dhcpserver.log")
	w := newLogOutput(&configmgr.LogConfig{
		File:       fileName,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     3,
		Compress:   true,
	})
	testutil.CleanupAndRequireSuccess(t, func() (err error) { return closeLogOutput(w) })

	lj := testutil.RequireTypeAssert[*lumberjack.Logger](t, w)
	assert.Equal(t, fileName, lj.Filename)
	assert.Equal(t, 1, lj.MaxSize)
	assert.Equal(t, 2, lj.MaxBackups)
	assert.Equal(t, 3, lj.MaxAge)
	assert.True(t, lj.Compress)

	l := newBaseLogger(&configmgr.LogConfig{}, w)
	l.Info("written to file")

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)

	assert.Contains(t, string(data), "written to file")
}

func TestNewBaseLogger(t *testing.T) {
	t.Parallel()

	t.Run("info", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		l := newBaseLogger(&configmgr.LogConfig{}, buf)
		l.Debug("debug message")
		l.Info("info message")

		assert.NotContains(t, buf.String(), "debug message")
		assert.Contains(t, buf.String(), "info message")
	})

	t.Run("verbose", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		l := newBaseLogger(&configmgr.LogConfig{Verbose: true}, buf)
		l.Debug("debug message")

		assert.Contains(t, buf.String(), "debug message")
	})
}

func TestCloseLogOutput(t *testing.T) {
	t.Parallel()

	assert.NoError(t, closeLogOutput(&bytes.Buffer{}))
}
