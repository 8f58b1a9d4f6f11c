package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"github.com/berry2bd/DHCP-Server/internal/dhcpsvc"
	"github.com/berry2bd/DHCP-Server/internal/metrics"
	"github.com/google/renameio/v2/maybe"
	"github.com/prometheus/client_golang/prometheus"
)

// serviceMgr manages the services of the server.
type serviceMgr struct {
	logger *slog.Logger
	engine *dhcpsvc.Engine
	dhcp   *dhcpsvc.Server

	// web is nil if the metrics are disabled.
	web *metrics.Server

	pidFilePath string
}

// serviceMgrConfig contains service manager configuration parameters.
type serviceMgrConfig struct {
	// baseLogger is used to derive the loggers of the services.  It must not
	// be nil.
	baseLogger *slog.Logger

	// conf is the validated configuration of the services.  It must not be
	// nil.
	conf *configmgr.Config

	// pidFilePath is the path to the file where to store the PID, if any.
	pidFilePath string
}

// newServiceMgr creates a new *serviceMgr with all the services configured
// but not started.
func newServiceMgr(c *serviceMgrConfig) (s *serviceMgr, err error) {
	conf := c.conf

	s = &serviceMgr{
		logger:      c.baseLogger.With(slogutil.KeyPrefix, "svcmgr"),
		pidFilePath: c.pidFilePath,
	}

	var mtrc dhcpsvc.Metrics = dhcpsvc.EmptyMetrics{}
	if promConf := conf.Prometheus; promConf.Enabled {
		reg := prometheus.NewRegistry()
		mtrc, err = metrics.NewDHCP(promConf.Namespace, reg)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}

		s.web = metrics.NewServer(&metrics.ServerConfig{
			Logger:   c.baseLogger.With(slogutil.KeyPrefix, "metrics"),
			Gatherer: reg,
			Addr:     promConf.ListenAddr,
		})
	}

	engine, err := dhcpsvc.NewEngine(&dhcpsvc.Config{
		Logger:        c.baseLogger.With(slogutil.KeyPrefix, "dhcpsvc"),
		Metrics:       mtrc,
		Clock:         timeutil.SystemClock{},
		ServerID:      conf.ServerID,
		Pool:          conf.Pool,
		LeaseDuration: time.Duration(conf.LeaseDuration),
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	srvConf := &dhcpsvc.ServerConfig{
		Logger:      c.baseLogger.With(slogutil.KeyPrefix, "dhcpsrv"),
		Handler:     engine,
		Addr:        conf.ListenAddr,
		IdleTimeout: time.Duration(conf.IdleTimeout),
	}

	err = srvConf.Validate()
	if err != nil {
		return nil, fmt.Errorf("dhcp server config: %w", err)
	}

	s.engine = engine
	s.dhcp = dhcpsvc.NewServer(srvConf)

	return s, nil
}

// type check
var _ service.Interface = (*serviceMgr)(nil)

// Start implements the [service.Interface] interface for *serviceMgr.
func (s *serviceMgr) Start(ctx context.Context) (err error) {
	if s.web != nil {
		err = s.web.Start(ctx)
		if err != nil {
			return fmt.Errorf("starting metrics: %w", err)
		}
	}

	err = s.dhcp.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting dhcp: %w", err)
	}

	s.writePID(ctx)

	return nil
}

// done returns a channel that is closed when the DHCP server stops on its own.
func (s *serviceMgr) done() (c <-chan struct{}) {
	return s.dhcp.Done()
}

// resetLeases frees all the leases of the engine.
func (s *serviceMgr) resetLeases(ctx context.Context) {
	s.engine.Reset(ctx)

	s.logger.InfoContext(ctx, "leases reset")
}

// writePID writes the PID to the file.  Any errors are reported to log.
func (s *serviceMgr) writePID(ctx context.Context) {
	if s.pidFilePath == "" {
		return
	}

	pid := os.Getpid()
	data := strconv.AppendInt(nil, int64(pid), 10)
	data = append(data, '\n')

	err := maybe.WriteFile(s.pidFilePath, data, 0o644)
	if err != nil {
		s.logger.ErrorContext(ctx, "writing pidfile", slogutil.KeyError, err)

		return
	}

	s.logger.DebugContext(ctx, "wrote pid", "file", s.pidFilePath, "pid", pid)
}

// Shutdown implements the [service.Interface] interface for *serviceMgr.
func (s *serviceMgr) Shutdown(ctx context.Context) (err error) {
	var errs []error

	err = s.dhcp.Shutdown(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("shutting down dhcp: %w", err))
	}

	if s.web != nil {
		err = s.web.Shutdown(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("shutting down metrics: %w", err))
		}
	}

	s.removePID(ctx)

	return errors.Join(errs...)
}

// removePID removes the PID file.  Any errors are reported to log.
func (s *serviceMgr) removePID(ctx context.Context) {
	if s.pidFilePath == "" {
		return
	}

	err := os.Remove(s.pidFilePath)
	if err != nil {
		s.logger.ErrorContext(ctx, "removing pidfile", slogutil.KeyError, err)

		return
	}

	s.logger.DebugContext(ctx, "removed pidfile", "file", s.pidFilePath)
}
