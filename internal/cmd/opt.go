package cmd

import (
	"cmp"
	"encoding"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/configmgr"
	"github.com/berry2bd/DHCP-Server/internal/version"
)

// options contains all command-line options for the server binary.
type options struct {
	// confFile is the path to the configuration file.
	confFile string

	// logFile is the destination of the log.  Special values:
	//
	//   - "stdout":  Write to stdout.
	//   - "stderr":  Write to stderr.
	//
	// If empty, the value from the configuration file is used.
	logFile string

	// pidFile is the path to the file where to store the PID.
	pidFile string

	// listenAddr, if valid, overrides the UDP address from the configuration
	// file.
	listenAddr netip.AddrPort

	// idleTimeout, if not zero, overrides the idle timeout from the
	// configuration file.
	idleTimeout seconds

	// checkConfig, if true, instructs the server to check the configuration
	// file, print an error message to stdout if it's invalid, and exit with a
	// corresponding exit code.
	checkConfig bool

	// debug is the same as verbose.
	debug bool

	// help, if true, instructs the server to print the command-line option
	// help message and quit with a successful exit-code.
	help bool

	// verbose, if true, instructs the server to enable verbose logging, which
	// includes a summary of every received message.
	verbose bool

	// version, if true, instructs the server to print the version to stdout
	// and quit with a successful exit-code.  If verbose is also true, print a
	// more detailed version description.
	version bool
}

// seconds is a whole positive number of seconds given on the command line.
// The zero value means that the option isn't set.
type seconds struct {
	time.Duration
}

// type check
var _ encoding.TextMarshaler = seconds{}

// MarshalText implements the [encoding.TextMarshaler] interface for seconds.
func (s seconds) MarshalText() (b []byte, err error) {
	if s.Duration == 0 {
		return []byte{}, nil
	}

	return strconv.AppendInt(nil, int64(s.Duration/time.Second), 10), nil
}

// type check
var _ encoding.TextUnmarshaler = (*seconds)(nil)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface for
// *seconds.
func (s *seconds) UnmarshalText(b []byte) (err error) {
	if len(b) == 0 {
		s.Duration = 0

		return nil
	}

	n, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	} else if n == 0 {
		return errors.ErrNotPositive
	}

	s.Duration = time.Duration(n) * time.Second

	return nil
}

// Indexes to help with the [commandLineOptions] initialization.
const (
	confFileIdx = iota
	logFileIdx
	pidFileIdx
	listenAddrIdx
	idleTimeoutIdx
	checkConfigIdx
	debugIdx
	helpIdx
	verboseIdx
	versionIdx
)

// commandLineOption contains information about a command-line option: its long
// and, if there is one, short forms, the value type, the description, and the
// default value.
type commandLineOption struct {
	defaultValue any
	description  string
	long         string
	short        string
	valueType    string
}

// commandLineOptions are all command-line options currently supported by the
// server.
var commandLineOptions = []*commandLineOption{
	confFileIdx: {
		defaultValue: configmgr.DefaultFileName,
		description:  "Path to the config file.  A missing file means the default configuration.",
		long:         "config",
		short:        "c",
		valueType:    "path",
	},

	logFileIdx: {
		defaultValue: "",
		description:  `Path to log file.  Special values include "stdout" and "stderr".`,
		long:         "logfile",
		short:        "l",
		valueType:    "path",
	},

	pidFileIdx: {
		defaultValue: "",
		description:  "Path to the file where to store the PID.",
		long:         "pidfile",
		short:        "",
		valueType:    "path",
	},

	listenAddrIdx: {
		defaultValue: netip.AddrPort{},
		description:  "UDP address to receive DHCP messages on, in the host:port format.",
		long:         "listen-addr",
		short:        "",
		valueType:    "host:port",
	},

	idleTimeoutIdx: {
		defaultValue: seconds{},
		description:  "Stop after this many seconds without receiving a message.",
		long:         "idle-timeout",
		short:        "s",
		valueType:    "seconds",
	},

	checkConfigIdx: {
		defaultValue: false,
		description:  "Check configuration, print errors to stdout, and quit.",
		long:         "check-config",
		short:        "",
		valueType:    "",
	},

	debugIdx: {
		defaultValue: false,
		description:  "Same as --verbose.",
		long:         "debug",
		short:        "d",
		valueType:    "",
	},

	helpIdx: {
		defaultValue: false,
		description:  "Print this help message and quit.",
		long:         "help",
		short:        "h",
		valueType:    "",
	},

	verboseIdx: {
		defaultValue: false,
		description:  "Enable verbose logging, including a summary of every received message.",
		long:         "verbose",
		short:        "v",
		valueType:    "",
	},

	versionIdx: {
		defaultValue: false,
		description: `Print the version to stdout and quit.  ` +
			`Print a more detailed version description with -v.`,
		long:      "version",
		short:     "",
		valueType: "",
	},
}

// parseOptions parses the command-line options for the server.
func parseOptions(cmdName string, args []string) (opts *options, err error) {
	flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)

	opts = &options{}
	for i, fieldPtr := range []any{
		confFileIdx:    &opts.confFile,
		logFileIdx:     &opts.logFile,
		pidFileIdx:     &opts.pidFile,
		listenAddrIdx:  &opts.listenAddr,
		idleTimeoutIdx: &opts.idleTimeout,
		checkConfigIdx: &opts.checkConfig,
		debugIdx:       &opts.debug,
		helpIdx:        &opts.help,
		verboseIdx:     &opts.verbose,
		versionIdx:     &opts.version,
	} {
		addOption(flags, fieldPtr, commandLineOptions[i])
	}

	flags.Usage = func() { usage(cmdName, os.Stderr) }

	err = flags.Parse(args)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return nil, err
	}

	opts.verbose = opts.verbose || opts.debug

	return opts, nil
}

// addOption adds the command-line option described by o to flags using fieldPtr
// as the pointer to the value.
func addOption(flags *flag.FlagSet, fieldPtr any, o *commandLineOption) {
	switch fieldPtr := fieldPtr.(type) {
	case *string:
		flags.StringVar(fieldPtr, o.long, o.defaultValue.(string), o.description)
		if o.short != "" {
			flags.StringVar(fieldPtr, o.short, o.defaultValue.(string), o.description)
		}
	case *bool:
		flags.BoolVar(fieldPtr, o.long, o.defaultValue.(bool), o.description)
		if o.short != "" {
			flags.BoolVar(fieldPtr, o.short, o.defaultValue.(bool), o.description)
		}
	case encoding.TextUnmarshaler:
		flags.TextVar(fieldPtr, o.long, o.defaultValue.(encoding.TextMarshaler), o.description)
		if o.short != "" {
			flags.TextVar(fieldPtr, o.short, o.defaultValue.(encoding.TextMarshaler), o.description)
		}
	default:
		panic(fmt.Errorf("unexpected field pointer type %T", fieldPtr))
	}
}

// usage prints a usage message similar to the one printed by package flag but
// taking long vs. short versions into account as well as using more informative
// value hints.
func usage(cmdName string, output io.Writer) {
	options := slices.Clone(commandLineOptions)
	slices.SortStableFunc(options, func(a, b *commandLineOption) (res int) {
		return strings.Compare(a.long, b.long)
	})

	b := &strings.Builder{}
	_, _ = fmt.Fprintf(b, "Usage of %s:\n", cmdName)

	for _, o := range options {
		writeUsageLine(b, o)

		// Use four spaces before the tab to trigger good alignment for both 4-
		// and 8-space tab stops.
		if shouldIncludeDefault(o.defaultValue) {
			_, _ = fmt.Fprintf(b, "    \t%s  (Default value: %q)\n", o.description, o.defaultValue)
		} else {
			_, _ = fmt.Fprintf(b, "    \t%s\n", o.description)
		}
	}

	_, _ = io.WriteString(output, b.String())
}

// shouldIncludeDefault returns true if this default value should be printed.
func shouldIncludeDefault(v any) (ok bool) {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v != ""
	default:
		return v == nil
	}
}

// writeUsageLine writes the usage line for the provided command-line option.
func writeUsageLine(b *strings.Builder, o *commandLineOption) {
	if o.short == "" {
		if o.valueType == "" {
			_, _ = fmt.Fprintf(b, "  --%s\n", o.long)
		} else {
			_, _ = fmt.Fprintf(b, "  --%s=%s\n", o.long, o.valueType)
		}

		return
	}

	if o.valueType == "" {
		_, _ = fmt.Fprintf(b, "  --%s/-%s\n", o.long, o.short)
	} else {
		_, _ = fmt.Fprintf(b, "  --%[1]s=%[3]s/-%[2]s %[3]s\n", o.long, o.short, o.valueType)
	}
}

// processOptions decides if the server should exit depending on the results of
// command-line option parsing.  stdout is where the informational output goes.
func processOptions(
	opts *options,
	cmdName string,
	parseErr error,
	stdout io.Writer,
) (exitCode int, needExit bool) {
	if parseErr != nil {
		// Assume that usage has already been printed.
		return osutil.ExitCodeArgumentError, true
	}

	if opts.help {
		usage(cmdName, stdout)

		return osutil.ExitCodeSuccess, true
	}

	if opts.version {
		if opts.verbose {
			_, _ = io.WriteString(stdout, version.Verbose())
		} else {
			_, _ = io.WriteString(stdout, version.Full()+"\n")
		}

		return osutil.ExitCodeSuccess, true
	}

	if opts.checkConfig {
		err := configmgr.Validate(opts.confFile)
		if err != nil {
			_, _ = io.WriteString(stdout, err.Error()+"\n")

			return osutil.ExitCodeFailure, true
		}

		return osutil.ExitCodeSuccess, true
	}

	return 0, false
}

// apply overrides the values in conf with the ones set on the command line.
// conf must not be nil.
func (opts *options) apply(conf *configmgr.Config) {
	if conf.Log != nil {
		conf.Log.File = cmp.Or(opts.logFile, conf.Log.File)
		conf.Log.Verbose = conf.Log.Verbose || opts.verbose
	}

	if opts.listenAddr.IsValid() {
		conf.ListenAddr = opts.listenAddr
	}

	if opts.idleTimeout.Duration != 0 {
		conf.IdleTimeout = timeutil.Duration(opts.idleTimeout.Duration)
	}
}
