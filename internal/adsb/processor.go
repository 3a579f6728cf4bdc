package adsb

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Stats accumulates counters over the lifetime of a Processor, mirroring
// the categories dump1090-family receivers report in their periodic
// statistics snapshot.
type Stats struct {
	SamplesProcessed uint64
	Preambles        uint64
	ValidMessages    uint64
	RejectedBad      uint64
	CorrectedSingle  uint64
	CorrectedDouble  uint64
	ByDF             map[uint8]uint64
}

// Processor runs the full receive pipeline: raw I/Q bytes in,
// registry-updating decoded messages out.
type Processor struct {
	logger     *logrus.Logger
	sampleRate float64
	policy     CorrectionPolicy

	magBuf   *MagnitudeBuffer
	icaoCache *ICAOCache
	registry *Registry

	stats Stats

	OnMessage func(*Message)
}

// NewProcessor creates a processor with the given correction policy and
// eviction TTL. sampleRate is samples/sec (2.4e6 for the receiver's
// native rate).
func NewProcessor(logger *logrus.Logger, sampleRate float64, policy CorrectionPolicy, ttl time.Duration) *Processor {
	return &Processor{
		logger:     logger,
		sampleRate: sampleRate,
		policy:     policy,
		magBuf:     NewMagnitudeBuffer(),
		icaoCache:  NewICAOCache(DefaultRecentICAOSeconds * time.Second),
		registry:   NewRegistry(ttl),
		stats:      Stats{ByDF: make(map[uint8]uint64)},
	}
}

// Registry exposes the aircraft registry this processor feeds.
func (p *Processor) Registry() *Registry {
	return p.registry
}

// TotalMessages reports the running count of validated messages,
// satisfying internal/httpapi.StatsSource for the aircraft.json feed.
func (p *Processor) TotalMessages() uint64 {
	return p.stats.ValidMessages
}

// Stats returns a snapshot of the accumulated counters.
func (p *Processor) Stats() Stats {
	byDF := make(map[uint8]uint64, len(p.stats.ByDF))
	for k, v := range p.stats.ByDF {
		byDF[k] = v
	}
	s := p.stats
	s.ByDF = byDF
	return s
}

// ProcessBlock demodulates one block of raw interleaved 8-bit I/Q
// samples arriving at blockStart, validates and corrects each
// candidate frame's CRC, decodes the survivors, and applies each to
// the aircraft registry.
func (p *Processor) ProcessBlock(iq []byte, blockStart time.Time) []*Message {
	mag := p.magBuf.Convert(iq)
	p.stats.SamplesProcessed += uint64(len(mag))

	candidates := Demodulate2400(mag, blockStart, p.sampleRate, p.icaoCache)
	p.stats.Preambles += uint64(len(candidates))

	var out []*Message
	for _, c := range candidates {
		msg := &Message{
			Data:      c.Data,
			Len:       c.Len,
			Timestamp: c.Timestamp,
			Signal:    c.Signal,
			Score:     c.Score,
		}

		single, double := ValidateAndCorrect(msg, p.icaoCache, p.policy)
		p.stats.CorrectedSingle += single
		p.stats.CorrectedDouble += double

		if !msg.Valid {
			p.stats.RejectedBad++
			continue
		}

		Decode(msg)
		p.stats.ValidMessages++
		p.stats.ByDF[msg.DF]++

		p.applyToRegistry(msg)

		out = append(out, msg)
		if p.OnMessage != nil {
			p.OnMessage(msg)
		}
	}

	return out
}

func (p *Processor) applyToRegistry(msg *Message) {
	u := AircraftUpdate{
		ICAO:      msg.ICAO,
		Now:       msg.Timestamp,
		Signal:    msg.Signal,
		DF:        msg.DF,
		TypeCode:  msg.TypeCode,
		Callsign:  msg.Callsign,
		HasAlt:    msg.HasAlt,
		Altitude:  msg.Altitude,
		HasSquawk: msg.HasSquawk,
		Squawk:    msg.Squawk,
		HasSpeed:  msg.HasSpeed,
		Speed:     msg.Speed,
		Track:     msg.Track,
		TrackOK:   msg.TrackOK,
		VertRate:  msg.VertRate,
		OnGround:  msg.OnGround,
		HasCPR:    msg.HasCPR,
		CPRLat:    msg.CPRLat,
		CPRLon:    msg.CPRLon,
		CPRFFlag:  msg.CPRFFlag,
		Surface:   msg.Surface,
	}
	p.registry.Update(u)
}

// EvictStale forwards to the underlying registry; callers typically
// invoke this from a periodic ticker (spec default: every 125ms).
func (p *Processor) EvictStale() []*Aircraft {
	return p.registry.EvictStale()
}

// ApplyUpstream feeds an update sourced from an upstream RAW_IN or
// SBS_IN feed (i.e. not locally demodulated) into the registry,
// keeping remote-fed and locally-decoded aircraft in the same table.
func (p *Processor) ApplyUpstream(u AircraftUpdate) *Aircraft {
	return p.registry.Update(u)
}
