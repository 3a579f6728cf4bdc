//go:build !unix

package rtlsdr

import "os"

// ShutdownSignals falls back to os.Interrupt on non-POSIX builds,
// where SIGTERM has no equivalent.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
