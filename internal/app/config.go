package app

import (
	"fmt"
	"strconv"
	"strings"
)

// Default configuration constants, matching dump1090-family defaults.
const (
	DefaultFrequency  = 1090000000 // 1090 MHz
	DefaultSampleRate = 2400000    // 2.4 MHz
	DefaultGain       = -1         // auto

	DefaultRawOutPort  = 30002
	DefaultRawInPort   = 30001
	DefaultSBSOutPort  = 30003
	DefaultSBSInPort   = 0 // disabled unless --net-sbs-in-port is set
	DefaultHTTPPort    = 8080
	DefaultInteractiveTTL = 60 // seconds
)

// kind identifies how a field's flag is registered and parsed.
// The field table below is walked by cobra registration instead of a
// StringVar/IntVar/BoolVar call sprinkled through main.
type kind int

const (
	kindString kind = iota
	kindInt
	kindUint32
	kindBool
	kindFloat
	kindStringSlice
)

// flagSpec binds one CLI flag to one Config field.
type flagSpec struct {
	name    string
	kind    kind
	usage   string
	strDst  *string
	intDst  *int
	u32Dst  *uint32
	boolDst *bool
	f64Dst  *float64
	sliceDst *[]string

	strDefault   string
	intDefault   int
	u32Default   uint32
	boolDefault  bool
	f64Default   float64
}

// Config holds every value the CLI surface can set: home position,
// preamble threshold, stats cadence, file replay looping, deny lists.
type Config struct {
	// Input source.
	InFile string // "" = RTL-SDR hardware, "-" = stdin, else file path
	Loops  int    // 0 = forever when replaying a file

	// RTL-SDR tuning.
	Frequency   uint32
	GainStr     string // "auto" or a dB value
	Gain        int    // resolved tenths-of-dB, or DefaultGain for auto
	PPM         int
	DeviceIndex int

	// Decode behavior.
	Aggressive         bool
	NoFix              bool
	PreambleThreshold  int
	Lat, Lon           float64
	HaveHomePosition   bool

	// Display/metric.
	Interactive    bool
	InteractiveTTL int
	Metric         bool
	Stats          bool

	// Networking.
	Net           bool
	NetOnly       bool
	NetActive     bool
	Raw           bool
	RawOutPort    int
	RawInPort     int
	SBSOutPort    int
	SBSInPort     int
	HTTPPort      int
	HostRawIn     string
	HostSBSIn     string
	DenyIPv4      []string
	DenyIPv6      []string

	// Ambient.
	LogDir       string
	LogRotateUTC bool
	Verbose      bool
	ShowVersion  bool
}

// DefaultConfig returns a Config populated with every flag's default,
// identical to what an unflagged invocation produces.
func DefaultConfig() Config {
	return Config{
		Frequency:         DefaultFrequency,
		GainStr:           "auto",
		Gain:              DefaultGain,
		DeviceIndex:       0,
		PreambleThreshold: 0, // not read; demod.go uses adsb.DefaultPreambleThreshold
		InteractiveTTL:    DefaultInteractiveTTL,
		RawOutPort:        DefaultRawOutPort,
		RawInPort:         DefaultRawInPort,
		SBSOutPort:        DefaultSBSOutPort,
		SBSInPort:         DefaultSBSInPort,
		HTTPPort:          DefaultHTTPPort,
		LogDir:            "logs",
		Loops:             1,
	}
}

// flagSpecs builds the declarative table binding every CLI flag to a
// field of cfg. RegisterFlags (cobra) walks this table; Validate checks
// the resulting Config fields directly.
func flagSpecs(cfg *Config) []flagSpec {
	return []flagSpec{
		{name: "infile", kind: kindString, usage: "read IQ samples from a file ('-' for stdin) instead of an RTL-SDR device", strDst: &cfg.InFile},
		{name: "loops", kind: kindInt, usage: "replay --infile this many times (0 = forever)", intDst: &cfg.Loops, intDefault: 1},
		{name: "freq", kind: kindUint32, usage: "tuner center frequency in Hz", u32Dst: &cfg.Frequency, u32Default: DefaultFrequency},
		{name: "gain", kind: kindString, usage: "tuner gain in dB, or 'auto'", strDst: &cfg.GainStr, strDefault: "auto"},
		{name: "ppm", kind: kindInt, usage: "frequency correction in parts-per-million (parsed; not applied to the tuner)", intDst: &cfg.PPM},
		{name: "device-index", kind: kindInt, usage: "RTL-SDR device index", intDst: &cfg.DeviceIndex},
		{name: "aggressive", kind: kindBool, usage: "enable two-bit error correction on all long frames (the preamble threshold is unchanged)", boolDst: &cfg.Aggressive},
		{name: "no-fix", kind: kindBool, usage: "disable single/two-bit CRC error correction entirely", boolDst: &cfg.NoFix},
		{name: "preamble-threshold", kind: kindInt, usage: "minimum preamble correlator score (parsed; the demodulator always uses its built-in threshold)", intDst: &cfg.PreambleThreshold},
		{name: "lat", kind: kindFloat, usage: "receiver latitude, for local CPR decode and /data/receiver.json", f64Dst: &cfg.Lat},
		{name: "lon", kind: kindFloat, usage: "receiver longitude, for local CPR decode and /data/receiver.json", f64Dst: &cfg.Lon},
		{name: "interactive", kind: kindBool, usage: "interactive mode (no effect: there is no interactive display, and --interactive-ttl aging always applies)", boolDst: &cfg.Interactive},
		{name: "interactive-ttl", kind: kindInt, usage: "seconds an aircraft is kept after its last message", intDst: &cfg.InteractiveTTL, intDefault: DefaultInteractiveTTL},
		{name: "metric", kind: kindBool, usage: "metric units (no effect: outputs always use feet and knots)", boolDst: &cfg.Metric},
		{name: "stats", kind: kindBool, usage: "log a periodic statistics snapshot", boolDst: &cfg.Stats},
		{name: "net", kind: kindBool, usage: "enable networking services in addition to any local display", boolDst: &cfg.Net},
		{name: "net-only", kind: kindBool, usage: "enable networking and disable local decoding output", boolDst: &cfg.NetOnly},
		{name: "net-active", kind: kindBool, usage: "actively connect RAW_IN/SBS_IN to --host-raw-in/--host-sbs-in instead of listening", boolDst: &cfg.NetActive},
		{name: "raw", kind: kindBool, usage: "print raw hex frames to stdout as they are decoded", boolDst: &cfg.Raw},
		{name: "net-ro-port", kind: kindInt, usage: "RAW_OUT TCP port", intDst: &cfg.RawOutPort, intDefault: DefaultRawOutPort},
		{name: "net-ri-port", kind: kindInt, usage: "RAW_IN TCP/UDP port", intDst: &cfg.RawInPort, intDefault: DefaultRawInPort},
		{name: "net-sbs-port", kind: kindInt, usage: "SBS_OUT TCP port", intDst: &cfg.SBSOutPort, intDefault: DefaultSBSOutPort},
		{name: "net-sbs-in-port", kind: kindInt, usage: "SBS_IN TCP port (0 disables the listener)", intDst: &cfg.SBSInPort, intDefault: DefaultSBSInPort},
		{name: "net-http-port", kind: kindInt, usage: "HTTP port", intDst: &cfg.HTTPPort, intDefault: DefaultHTTPPort},
		{name: "host-raw-in", kind: kindString, usage: "host:port to actively connect RAW_IN to (--net-active)", strDst: &cfg.HostRawIn},
		{name: "host-sbs-in", kind: kindString, usage: "host:port to actively connect SBS_IN to (--net-active)", strDst: &cfg.HostSBSIn},
		{name: "deny4", kind: kindStringSlice, usage: "IPv4 CIDR to deny on every listening service (repeatable)", sliceDst: &cfg.DenyIPv4},
		{name: "deny6", kind: kindStringSlice, usage: "IPv6 CIDR to deny on every listening service (repeatable)", sliceDst: &cfg.DenyIPv6},
		{name: "log-dir", kind: kindString, usage: "directory for rotated BaseStation logs", strDst: &cfg.LogDir, strDefault: "logs"},
		{name: "log-rotate-utc", kind: kindBool, usage: "rotate logs at UTC midnight instead of local midnight", boolDst: &cfg.LogRotateUTC},
		{name: "verbose", kind: kindBool, usage: "enable debug-level logging", boolDst: &cfg.Verbose},
		{name: "version", kind: kindBool, usage: "print version information and exit", boolDst: &cfg.ShowVersion},
	}
}

// Validate checks cross-field constraints the flag table alone can't
// express, resolving --gain and the home-position pair. It returns a
// non-nil error for any configuration error (exit code 1).
func (c *Config) Validate() error {
	if c.Frequency == 0 {
		return fmt.Errorf("--freq must be nonzero")
	}
	if c.Loops < 0 {
		return fmt.Errorf("--loops must be >= 0")
	}
	if c.InFile == "" && c.DeviceIndex < 0 {
		return fmt.Errorf("--device-index must be >= 0")
	}

	gain, err := parseGain(c.GainStr)
	if err != nil {
		return err
	}
	c.Gain = gain

	if (c.Lat != 0) != (c.Lon != 0) {
		return fmt.Errorf("--lat and --lon must be supplied together")
	}
	c.HaveHomePosition = c.Lat != 0 || c.Lon != 0

	if c.NetActive {
		if c.HostRawIn == "" && c.HostSBSIn == "" {
			return fmt.Errorf("--net-active requires --host-raw-in and/or --host-sbs-in")
		}
	}

	ports := map[string]int{
		"net-ro-port":  c.RawOutPort,
		"net-ri-port":  c.RawInPort,
		"net-sbs-port": c.SBSOutPort,
		"net-http-port": c.HTTPPort,
	}
	if c.SBSInPort != 0 {
		ports["net-sbs-in-port"] = c.SBSInPort
	}
	seen := make(map[int]string, len(ports))
	for name, port := range ports {
		if other, dup := seen[port]; dup {
			return fmt.Errorf("--%s and --%s both bind port %d", name, other, port)
		}
		seen[port] = name
	}

	return nil
}

// parseGain resolves the --gain flag, accepting "auto" (case
// insensitive) or a decimal dB value, returning tenths-of-dB as
// RTLSDRDevice.Configure expects (DefaultGain signals auto).
func parseGain(s string) (int, error) {
	if s == "" || strings.EqualFold(s, "auto") {
		return DefaultGain, nil
	}
	db, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("--gain %q: not 'auto' or a number", s)
	}
	return int(db * 10), nil
}
