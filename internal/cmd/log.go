package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Special values of the log file.
const (
	outputStdout = "stdout"
	outputStderr = "stderr"
)

// newLogOutput returns the destination of the log described by conf.  conf
// must not be nil.  Files are rotated according to conf.
func newLogOutput(conf *configmgr.LogConfig) (w io.Writer) {
	switch conf.File {
	case "", outputStdout:
		return os.Stdout
	case outputStderr:
		return os.Stderr
	default:
		return &lumberjack.Logger{
			Filename:   conf.File,
			Compress:   conf.Compress,
			LocalTime:  true,
			MaxBackups: conf.MaxBackups,
			MaxSize:    conf.MaxSize,
			MaxAge:     conf.MaxAge,
		}
	}
}

// closeLogOutput closes w if it's a rotated log file.
func closeLogOutput(w io.Writer) (err error) {
	if lj, ok := w.(*lumberjack.Logger); ok {
		return lj.Close()
	}

	return nil
}

// newBaseLogger returns the logger all the other loggers are derived from.
// conf must not be nil.
func newBaseLogger(conf *configmgr.LogConfig, output io.Writer) (l *slog.Logger) {
	lvl := slog.LevelInfo
	if conf.Verbose {
		lvl = slog.LevelDebug
	}

	return slogutil.New(&slogutil.Config{
		Output:       output,
		Format:       slogutil.FormatDefault,
		Level:        lvl,
		AddTimestamp: true,
	})
}
