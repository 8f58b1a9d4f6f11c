// Package version contains the build information of the DHCP server.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/stringutil"
)

// Name is the human-readable name of the program.
const Name = "DHCP Server"

// These are set by the linker.  Export them only through getters, since Go
// has no immutable variables.
var (
	version    string = "v0.0.0-dev"
	committime string
)

// Version returns the build version.
func Version() (v string) {
	return version
}

// Full returns the name of the program along with its version.
func Full() (v string) {
	return fmt.Sprintf("%s, version %s", Name, version)
}

// Constants defining the headers of the build information message.
const (
	vFmtVerHdr    = "Version: "
	vFmtGoHdr     = "Go version: "
	vFmtTimeHdr   = "Commit time: "
	vFmtGOOSHdr   = "GOOS: " + runtime.GOOS
	vFmtGOARCHHdr = "GOARCH: " + runtime.GOARCH
	vFmtDepsHdr   = "Dependencies:"
)

// Verbose returns formatted build information.  Output example:
//
//	DHCP Server
//	Version: v0.1.0
//	Go version: go1.24.4
//	Commit time: 2025-06-30 12:00:00 +0000 UTC
//	GOOS: linux
//	GOARCH: amd64
//	Dependencies:
//	        ...
func Verbose() (v string) {
	b := &strings.Builder{}

	const nl = "\n"
	stringutil.WriteToBuilder(b, Name, nl)
	stringutil.WriteToBuilder(b, vFmtVerHdr, version, nl)
	stringutil.WriteToBuilder(b, vFmtGoHdr, runtime.Version(), nl)

	writeCommitTime(b)

	stringutil.WriteToBuilder(b, vFmtGOOSHdr, nl)
	stringutil.WriteToBuilder(b, vFmtGOARCHHdr, nl)

	info, ok := debug.ReadBuildInfo()
	if !ok || len(info.Deps) == 0 {
		return b.String()
	}

	stringutil.WriteToBuilder(b, vFmtDepsHdr, nl)
	for _, dep := range info.Deps {
		if depStr := fmtModule(dep); depStr != "" {
			stringutil.WriteToBuilder(b, "\t", depStr, nl)
		}
	}

	return b.String()
}

// fmtModule returns formatted information about module.  The result looks like:
//
//	github.com/Username/module@v1.2.3 (sum: someHASHSUM=)
func fmtModule(m *debug.Module) (formatted string) {
	if m == nil {
		return ""
	}

	if repl := m.Replace; repl != nil {
		return fmtModule(repl)
	}

	b := &strings.Builder{}

	stringutil.WriteToBuilder(b, m.Path)
	if ver := m.Version; ver != "" {
		sep := "@"
		if ver == "(devel)" {
			sep = " "
		}

		stringutil.WriteToBuilder(b, sep, ver)
	}

	if sum := m.Sum; sum != "" {
		stringutil.WriteToBuilder(b, " (sum: ", sum, ")")
	}

	return b.String()
}

// writeCommitTime writes the commit time header, if the commit time is set.
func writeCommitTime(b *strings.Builder) {
	if committime == "" {
		return
	}

	sec, err := strconv.ParseInt(committime, 10, 64)
	if err != nil {
		stringutil.WriteToBuilder(b, vFmtTimeHdr, fmt.Sprintf("parse error: %s", err), "\n")
	} else {
		stringutil.WriteToBuilder(b, vFmtTimeHdr, time.Unix(sec, 0).UTC().String(), "\n")
	}
}
