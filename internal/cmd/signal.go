package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
)

// signalHandler waits for the server to stop and shuts the services down.
type signalHandler struct {
	logger *slog.Logger

	// signals receives incoming signals.
	signals <-chan os.Signal

	svcMgr *serviceMgr
}

// notifySignals relays the shutdown signals and SIGHUP to the returned
// channel.
func notifySignals() (c chan os.Signal) {
	c = make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	return c
}

// newSignalHandler returns a new properly initialized *signalHandler.
func newSignalHandler(
	logger *slog.Logger,
	signals <-chan os.Signal,
	svcMgr *serviceMgr,
) (h *signalHandler) {
	return &signalHandler{
		logger:  logger,
		signals: signals,
		svcMgr:  svcMgr,
	}
}

// handle blocks until a shutdown signal is received or the DHCP server stops
// on its own.  Then it shuts the services down and returns the exit code.
// SIGHUP frees all the leases.
func (h *signalHandler) handle(ctx context.Context) (status int) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}

		slogutil.PrintRecovered(ctx, h.logger, v)

		os.Exit(osutil.ExitCodeFailure)
	}()

	for {
		select {
		case sig := <-h.signals:
			h.logger.InfoContext(ctx, "received signal", "signal", sig)
			if sig == syscall.SIGHUP {
				h.svcMgr.resetLeases(ctx)

				continue
			}
		case <-h.svcMgr.done():
			h.logger.InfoContext(ctx, "dhcp server stopped")
		}

		return h.shutdown(ctx)
	}
}

// shutdown gracefully shuts down all services.
func (h *signalHandler) shutdown(ctx context.Context) (status int) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	h.logger.InfoContext(ctx, "shutting down services")

	err := h.svcMgr.Shutdown(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "shutting down", slogutil.KeyError, err)

		return osutil.ExitCodeFailure
	}

	return osutil.ExitCodeSuccess
}
