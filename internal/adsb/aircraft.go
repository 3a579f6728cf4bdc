package adsb

import (
	"fmt"
	"sync"
	"time"
)

// rssiSlots is the size of the rolling signal-strength ring buffer kept
// per aircraft for the interactive display's "Sig" column.
const rssiSlots = 4

// Aircraft is one tracked ICAO address and everything learned about it
// so far.
type Aircraft struct {
	ICAO      uint32
	HexAddr   string
	Callsign  string
	Altitude  int
	HasAlt    bool
	Speed     int
	HasSpeed  bool
	Track     float64
	TrackOK   bool
	Squawk    int
	HasSquawk bool
	VertRate  int
	OnGround  bool

	Latitude  float64
	Longitude float64
	HasPos    bool
	PosSeen   time.Time

	evenFrame    CPRFrame
	oddFrame     CPRFrame
	haveEven     bool
	haveOdd      bool
	evenSurface  bool
	oddSurface   bool

	rssi      [rssiSlots]float64
	rssiIndex int
	rssiCount int

	Messages  int64
	Seen      time.Time
	FirstSeen time.Time

	ShowState ShowState
}

func newAircraft(icao uint32, now time.Time) *Aircraft {
	return &Aircraft{
		ICAO:      icao,
		HexAddr:   fmt.Sprintf("%06X", icao),
		Seen:      now,
		FirstSeen: now,
		ShowState: ShowFirstTime,
	}
}

// Clone returns a value copy safe to hand to callers outside the
// registry's lock.
func (a *Aircraft) Clone() *Aircraft {
	clone := *a
	return &clone
}

// addSignal records a signal strength sample into the ring buffer.
func (a *Aircraft) addSignal(rssi float64) {
	a.rssi[a.rssiIndex] = rssi
	a.rssiIndex = (a.rssiIndex + 1) % rssiSlots
	if a.rssiCount < rssiSlots {
		a.rssiCount++
	}
}

// AverageSignal returns the mean of the recorded signal samples, or 0
// if none have been recorded yet.
func (a *Aircraft) AverageSignal() float64 {
	if a.rssiCount == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < a.rssiCount; i++ {
		sum += a.rssi[i]
	}
	return sum / float64(a.rssiCount)
}

// Registry tracks all recently seen aircraft, keyed by ICAO address.
// Grounded on the same responsibilities as a dump1090-style interactive
// aircraft list: insertion/update on every valid message, periodic
// eviction of stale entries, and CPR position resolution.
type Registry struct {
	mu        sync.Mutex
	aircraft  map[uint32]*Aircraft
	ttl       time.Duration
	nowFunc   func() time.Time
	recvLat   float64
	recvLon   float64
	haveRecv  bool
}

// NewRegistry creates an empty registry with the given eviction TTL.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		aircraft: make(map[uint32]*Aircraft),
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// SetReceiverPosition supplies a known receiver location, used as the
// reference point for local (single-frame) CPR decoding.
func (r *Registry) SetReceiverPosition(lat, lon float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recvLat = lat
	r.recvLon = lon
	r.haveRecv = true
}

// Update applies a decoded message to the registry, creating the
// aircraft entry if it is not already tracked, and returns the
// (possibly newly created) entry.
func (r *Registry) Update(u AircraftUpdate) *Aircraft {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.aircraft[u.ICAO]
	if !ok {
		a = newAircraft(u.ICAO, u.Now)
		r.aircraft[u.ICAO] = a
	} else {
		a.ShowState = ShowNormal
	}

	a.Seen = u.Now
	a.Messages++
	a.addSignal(u.Signal)

	if u.Callsign != "" {
		a.Callsign = u.Callsign
	}
	if u.HasAlt {
		a.Altitude = u.Altitude
		a.HasAlt = true
	}
	if u.HasSquawk {
		a.Squawk = u.Squawk
		a.HasSquawk = true
	}
	if u.HasSpeed {
		a.Speed = u.Speed
		a.HasSpeed = true
	}
	if u.TrackOK {
		a.Track = u.Track
		a.TrackOK = true
	}
	if u.VertRate != 0 {
		a.VertRate = u.VertRate
	}
	a.OnGround = u.OnGround

	if u.HasLatLon {
		a.Latitude = u.Latitude
		a.Longitude = u.Longitude
		a.HasPos = true
		a.PosSeen = u.Now
	} else if u.HasCPR {
		r.applyCPR(a, u)
	}

	return a
}

func (r *Registry) applyCPR(a *Aircraft, u AircraftUpdate) {
	frame := CPRFrame{
		LatCPR:    u.CPRLat,
		LonCPR:    u.CPRLon,
		FFlag:     u.CPRFFlag,
		Timestamp: u.Now,
		Surface:   u.Surface,
	}

	if frame.FFlag == 1 {
		a.oddFrame = frame
		a.haveOdd = true
		a.oddSurface = u.Surface
	} else {
		a.evenFrame = frame
		a.haveEven = true
		a.evenSurface = u.Surface
	}

	window := CPRAirborneWindowSeconds * time.Second
	if u.Surface {
		window = CPRSurfaceWindowSeconds * time.Second
	}

	if a.haveEven && a.haveOdd && a.evenSurface == a.oddSurface {
		diff := a.oddFrame.Timestamp.Sub(a.evenFrame.Timestamp)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			recentIsOdd := a.oddFrame.Timestamp.After(a.evenFrame.Timestamp)
			var pos Position
			var ok bool
			if u.Surface {
				refLat := r.recvLat
				if a.HasPos {
					refLat = a.Latitude
				}
				pos, ok = DecodeGlobalSurface(a.evenFrame, a.oddFrame, recentIsOdd, refLat)
			} else {
				pos, ok = DecodeGlobalAirborne(a.evenFrame, a.oddFrame, recentIsOdd)
			}
			if ok {
				a.Latitude = pos.Latitude
				a.Longitude = pos.Longitude
				a.HasPos = true
				a.PosSeen = pos.Timestamp
				return
			}
		}
	}

	// No fresh opposite-parity frame: fall back to local decode against
	// the aircraft's last known fix, or the receiver's own position.
	refLat, refLon, haveRef := r.localReference(a)
	if !haveRef {
		return
	}
	if pos, ok := DecodeLocal(frame, refLat, refLon); ok {
		a.Latitude = pos.Latitude
		a.Longitude = pos.Longitude
		a.HasPos = true
		a.PosSeen = pos.Timestamp
	}
}

func (r *Registry) localReference(a *Aircraft) (lat, lon float64, ok bool) {
	if a.HasPos {
		return a.Latitude, a.Longitude, true
	}
	if r.haveRecv {
		return r.recvLat, r.recvLon, true
	}
	return 0, 0, false
}

// Get returns a copy of the tracked aircraft for icao, if present.
func (r *Registry) Get(icao uint32) (*Aircraft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.aircraft[icao]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Snapshot returns copies of all tracked aircraft.
func (r *Registry) Snapshot() []*Aircraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Aircraft, 0, len(r.aircraft))
	for _, a := range r.aircraft {
		out = append(out, a.Clone())
	}
	return out
}

// Count returns the number of tracked aircraft.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.aircraft)
}

// EvictStale removes aircraft that have not been heard from within the
// registry's TTL, marking each ShowLastTime before removal so a caller
// pumping periodic reports can emit a final update.
func (r *Registry) EvictStale() []*Aircraft {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	var evicted []*Aircraft
	for icao, a := range r.aircraft {
		if now.Sub(a.Seen) > r.ttl {
			a.ShowState = ShowLastTime
			evicted = append(evicted, a.Clone())
			delete(r.aircraft, icao)
		}
	}
	return evicted
}
