package netio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sbsLine(fields ...string) string {
	line := ""
	for i, f := range fields {
		if i > 0 {
			line += ","
		}
		line += f
	}
	return line
}

func fullMSGFields(overrides map[int]string) []string {
	fields := make([]string, 22)
	fields[0] = "MSG"
	fields[1] = "3"
	fields[2] = "1"
	fields[3] = "1"
	fields[4] = "4B9696"
	fields[5] = "1"
	for i := 6; i < 22; i++ {
		fields[i] = ""
	}
	for idx, v := range overrides {
		fields[idx] = v
	}
	return fields
}

func TestSBSParser_AirbornePosition(t *testing.T) {
	p := NewSBSParser()
	fields := fullMSGFields(map[int]string{
		10: "RYR123",
		11: "35000",
		14: "51.470000",
		15: "-0.454300",
	})
	u, ok := p.ParseLine(sbsLine(fields...))
	require.True(t, ok)
	assert.EqualValues(t, 0x4B9696, u.ICAO)
	assert.Equal(t, "RYR123", u.Callsign)
	assert.True(t, u.HasAlt)
	assert.Equal(t, 35000, u.Altitude)
	assert.True(t, u.HasLatLon)
	assert.InDelta(t, 51.47, u.Latitude, 1e-4)
	assert.InDelta(t, -0.4543, u.Longitude, 1e-4)
}

func TestSBSParser_SquawkOnly(t *testing.T) {
	p := NewSBSParser()
	fields := fullMSGFields(map[int]string{17: "1200"})
	u, ok := p.ParseLine(sbsLine(fields...))
	require.True(t, ok)
	assert.True(t, u.HasSquawk)
	assert.Equal(t, 1200, u.Squawk)
	assert.False(t, u.HasLatLon)
}

func TestSBSParser_NonMSGRecordIgnored(t *testing.T) {
	p := NewSBSParser()
	_, ok := p.ParseLine("SEL,1,1,4B9696,1,,,,,,,")
	assert.False(t, ok)
	assert.EqualValues(t, 0, p.InvalidCount)
}

func TestSBSParser_TruncatedMSGCountsInvalid(t *testing.T) {
	p := NewSBSParser()
	_, ok := p.ParseLine("MSG,3,1,1,4B9696")
	assert.False(t, ok)
	assert.EqualValues(t, 1, p.InvalidCount)
}

func TestSBSParser_FeedBuffersPartialLine(t *testing.T) {
	p := NewSBSParser()
	fields := fullMSGFields(map[int]string{17: "1200"})
	line := sbsLine(fields...)

	updates := p.Feed([]byte(line[:10]))
	assert.Empty(t, updates)

	updates = p.Feed([]byte(line[10:] + "\r\n"))
	require.Len(t, updates, 1)
	assert.EqualValues(t, 0x4B9696, updates[0].ICAO)
}
