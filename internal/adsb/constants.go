package adsb

// ADS-B 6-bit character set: space, A-Z, 0-9.
const ADSBCharset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// Message length constants, mirroring dump1090's MODES_*_MSG_BITS.
const (
	ShortMsgBits  = 56
	LongMsgBits   = 112
	ShortMsgBytes = ShortMsgBits / 8
	LongMsgBytes  = LongMsgBits / 8
)

// MagBufSamples is the block size consumed per demodulation pass.
// Dump1090 calls this MODES_ASYNC_BUF_SIZE; picked here as a power of
// two in the same ballpark (~128k samples).
const MagBufSamples = 131072

// TrailingSamples is copied from the tail of one magnitude block into
// the head of the next so a preamble straddling a block boundary is
// missed. Sized as dump1090's 2*MODES_LONG_MSG_BITS+1 = 225 samples,
// which covers the 19-sample preamble and the first ~86 bits of a frame
// at 2.4MHz; the whole of a 112-bit frame spans about 288 samples.
const TrailingSamples = 2*LongMsgBits + 1

// CPR decoding constants.
const (
	CPRLatBits = 17
	CPRLonBits = 17
	CPRMax     = 131072.0 // 2^17
)

// CPR freshness windows: airborne pairs must be within 10s of each
// other, surface pairs within 50s.
const (
	CPRAirborneWindowSeconds = 10
	CPRSurfaceWindowSeconds  = 50
)

// Squawk code bit manipulation constants.
const (
	SquawkA4A2A1Mask = 0x07
	SquawkB4B2B1Mask = 0x07
	SquawkC4C2C1Mask = 0x07
	SquawkD4D2D1Mask = 0x07

	SquawkA4A2A1Shift = 9
	SquawkB4B2B1Shift = 6
	SquawkC4C2C1Shift = 3
	SquawkD4D2D1Shift = 0

	SquawkAMultiplier = 1000
	SquawkBMultiplier = 100
	SquawkCMultiplier = 10
	SquawkDMultiplier = 1
)

// Downlink formats decoded by this receiver (others are recognised
// only by length, never decoded).
const (
	DF0  = 0
	DF4  = 4
	DF5  = 5
	DF11 = 11
	DF16 = 16
	DF17 = 17
	DF18 = 18
	DF20 = 20
	DF21 = 21
)

// Preamble threshold, recent-ICAO window and default eviction TTL.
// Demodulate2400 always uses DefaultPreambleThreshold; no CLI flag
// changes it. internal/app sets the eviction TTL from its own
// --interactive-ttl flag.
const (
	DefaultPreambleThreshold = 1 << 5 // matches the demodulator's >>5 scaling
	DefaultRecentICAOSeconds = 60     // brute-force ICAO recovery window
	DefaultInteractiveTTL    = 60     // seconds before an aircraft is evicted
)

// ShowState is the aircraft's lifecycle stage for interactive reporting.
type ShowState int

const (
	ShowNone ShowState = iota
	ShowFirstTime
	ShowNormal
	ShowLastTime
)

func (s ShowState) String() string {
	switch s {
	case ShowFirstTime:
		return "FIRST_TIME"
	case ShowNormal:
		return "NORMAL"
	case ShowLastTime:
		return "LAST_TIME"
	default:
		return "NONE"
	}
}
