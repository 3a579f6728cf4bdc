//go:build unix

package rtlsdr

import (
	"os"

	"golang.org/x/sys/unix"
)

// ShutdownSignals returns the signal set the application should treat
// as a graceful-shutdown request. POSIX builds listen on the real
// SIGINT/SIGTERM pair via x/sys/unix rather than assuming the syscall
// package defines them identically on every GOOS; signals_other.go
// covers the remaining builds.
func ShutdownSignals() []os.Signal {
	return []os.Signal{unix.SIGINT, unix.SIGTERM}
}
