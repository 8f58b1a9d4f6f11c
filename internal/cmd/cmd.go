// Package cmd is the DHCP server entry point.  It reads the configuration,
// sets up logging, starts the services, and waits for them to stop.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"github.com/berry2bd/DHCP-Server/internal/version"
)

// defaultTimeout is the timeout used for starting and stopping the services.
const defaultTimeout = 5 * time.Second

// Main is the entry point of the DHCP server.
func Main() {
	ctx := context.Background()

	cmdName := os.Args[0]
	opts, err := parseOptions(cmdName, os.Args[1:])
	exitCode, needExit := processOptions(opts, cmdName, err, os.Stdout)
	if needExit {
		os.Exit(exitCode)
	}

	conf, exists, err := configmgr.Read(opts.confFile)
	if err == nil {
		opts.apply(conf)
		err = conf.Validate()
	}

	if err != nil {
		exitWithError(os.Stderr, cmdName, err)
	}

	output := newLogOutput(conf.Log)
	baseLogger := newBaseLogger(conf.Log, output)
	l := baseLogger.With(slogutil.KeyPrefix, "main")

	l.InfoContext(
		ctx,
		"starting",
		"version", version.Version(),
		"pid", os.Getpid(),
		"config", opts.confFile,
		"config_exists", exists,
	)

	svcMgr, err := newServiceMgr(&serviceMgrConfig{
		baseLogger:  baseLogger,
		conf:        conf,
		pidFilePath: opts.pidFile,
	})
	if err != nil {
		l.ErrorContext(ctx, "creating services", slogutil.KeyError, err)

		os.Exit(osutil.ExitCodeFailure)
	}

	signals := notifySignals()

	startCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	err = svcMgr.Start(startCtx)
	cancel()
	if err != nil {
		l.ErrorContext(ctx, "starting services", slogutil.KeyError, err)

		os.Exit(osutil.ExitCodeFailure)
	}

	status := newSignalHandler(l, signals, svcMgr).handle(ctx)
	l.InfoContext(ctx, "exiting", "status", status)

	err = closeLogOutput(output)
	if err != nil {
		exitWithError(os.Stderr, cmdName, err)
	}

	os.Exit(status)
}

// exitWithError writes err to w and exits with a failure code.
func exitWithError(w io.Writer, cmdName string, err error) {
	_, _ = fmt.Fprintf(w, "%s: %s\n", cmdName, err)

	os.Exit(osutil.ExitCodeFailure)
}
