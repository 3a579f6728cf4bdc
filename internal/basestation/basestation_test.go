package basestation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/adsb"
)

func TestSerialize_Identification(t *testing.T) {
	f := NewFormatter(uuid.New())
	msg := &adsb.Message{
		ICAO:      0x4B9696,
		DF:        adsb.DF17,
		TypeCode:  4,
		Callsign:  "RYR123",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	line, ok := f.Serialize(msg, 0, 0, false)
	require.True(t, ok)

	fields := strings.Split(line, ",")
	require.Len(t, fields, 22)
	assert.Equal(t, "MSG", fields[0])
	assert.Equal(t, "1", fields[1])
	assert.Equal(t, "4B9696", fields[4])
	assert.Equal(t, "RYR123", fields[10])
}

func TestSerialize_AirbornePosition(t *testing.T) {
	f := NewFormatter(uuid.New())
	msg := &adsb.Message{
		ICAO:      0x400000,
		DF:        adsb.DF17,
		TypeCode:  11,
		HasAlt:    true,
		Altitude:  35000,
		Timestamp: time.Now(),
	}

	line, ok := f.Serialize(msg, 51.4700, -0.4543, true)
	require.True(t, ok)

	fields := strings.Split(line, ",")
	assert.Equal(t, "3", fields[1])
	assert.Equal(t, "35000", fields[11])
	assert.Equal(t, "51.470000", fields[14])
	assert.Equal(t, "-0.454300", fields[15])
}

func TestSerialize_SurveillanceIdentity(t *testing.T) {
	f := NewFormatter(uuid.New())
	msg := &adsb.Message{
		ICAO:      0x123456,
		DF:        adsb.DF5,
		HasSquawk: true,
		Squawk:    1200,
		Timestamp: time.Now(),
	}

	line, ok := f.Serialize(msg, 0, 0, false)
	require.True(t, ok)

	fields := strings.Split(line, ",")
	assert.Equal(t, "6", fields[1])
	assert.Equal(t, "1200", fields[17])
}

func TestSerialize_UnsupportedTypeCodeRejected(t *testing.T) {
	f := NewFormatter(uuid.New())
	msg := &adsb.Message{ICAO: 1, DF: adsb.DF17, TypeCode: 30}

	_, ok := f.Serialize(msg, 0, 0, false)
	assert.False(t, ok)
}

func TestFormatter_StableAircraftID(t *testing.T) {
	f := NewFormatter(uuid.New())
	id1 := f.aircraftID(0xAAAAAA)
	id2 := f.aircraftID(0xBBBBBB)
	id1Again := f.aircraftID(0xAAAAAA)

	assert.Equal(t, id1, id1Again)
	assert.NotEqual(t, id1, id2)
}
