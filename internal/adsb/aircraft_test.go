package adsb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpdateCreatesAndUpdatesAircraft(t *testing.T) {
	r := NewRegistry(60 * time.Second)
	now := time.Unix(1000, 0)

	a := r.Update(AircraftUpdate{ICAO: 0x123456, Now: now, HasAlt: true, Altitude: 35000})
	require.NotNil(t, a)
	assert.Equal(t, "123456", a.HexAddr)
	assert.Equal(t, 35000, a.Altitude)
	assert.Equal(t, ShowFirstTime, a.ShowState)

	a2 := r.Update(AircraftUpdate{ICAO: 0x123456, Now: now.Add(time.Second), Callsign: "TEST123"})
	assert.Equal(t, ShowNormal, a2.ShowState)
	assert.Equal(t, "TEST123", a2.Callsign)
	assert.Equal(t, 35000, a2.Altitude, "altitude should persist across updates that don't carry it")

	assert.Equal(t, 1, r.Count())
}

func TestRegistry_EvictStale(t *testing.T) {
	r := NewRegistry(60 * time.Second)
	base := time.Unix(1000, 0)
	r.nowFunc = func() time.Time { return base.Add(90 * time.Second) }

	r.Update(AircraftUpdate{ICAO: 0xAAAAAA, Now: base})
	evicted := r.EvictStale()
	require.Len(t, evicted, 1)
	assert.Equal(t, ShowLastTime, evicted[0].ShowState)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_CPRGlobalDecodeOnOppositeParityPair(t *testing.T) {
	r := NewRegistry(60 * time.Second)
	base := time.Unix(1000, 0)

	r.Update(AircraftUpdate{
		ICAO: 0x4840D6, Now: base, HasCPR: true,
		CPRLat: 93000, CPRLon: 51372, CPRFFlag: 0,
	})
	a := r.Update(AircraftUpdate{
		ICAO: 0x4840D6, Now: base.Add(time.Second), HasCPR: true,
		CPRLat: 74158, CPRLon: 50194, CPRFFlag: 1,
	})

	require.True(t, a.HasPos)
	assert.InDelta(t, 52.25720, a.Latitude, 0.001)
	assert.InDelta(t, 3.91937, a.Longitude, 0.001)
}

func TestRegistry_LocalDecodeUsesReceiverPosition(t *testing.T) {
	r := NewRegistry(60 * time.Second)
	r.SetReceiverPosition(52.2, 3.9)
	base := time.Unix(1000, 0)

	a := r.Update(AircraftUpdate{
		ICAO: 0x4840D6, Now: base, HasCPR: true,
		CPRLat: 93000, CPRLon: 51372, CPRFFlag: 0,
	})

	require.True(t, a.HasPos)
	assert.InDelta(t, 52.257, a.Latitude, 0.05)
}

func TestAircraft_AverageSignal(t *testing.T) {
	a := newAircraft(0x1, time.Now())
	a.addSignal(0.1)
	a.addSignal(0.3)
	assert.InDelta(t, 0.2, a.AverageSignal(), 1e-9)
}
