package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagnitudeBuffer_ConvertsPairs(t *testing.T) {
	b := NewMagnitudeBuffer()
	// (127, 127) is close to the DC bias and should produce a low
	// magnitude; (255, 255) is maximally off-center.
	out := b.Convert([]byte{127, 127, 255, 255})
	require.Len(t, out, 2)
	assert.Less(t, out[0], out[1])
}

func TestMagnitudeBuffer_CarriesTrailingSamples(t *testing.T) {
	b := NewMagnitudeBuffer()
	first := make([]byte, (TrailingSamples+10)*2)
	for i := range first {
		first[i] = byte(i % 256)
	}
	b.Convert(first)
	assert.LessOrEqual(t, len(b.trailing), TrailingSamples*2)

	second := b.Convert([]byte{10, 20})
	// output should include the carried trailing samples plus the new pair
	assert.Greater(t, len(second), 1)
}

func TestMagnitudeBuffer_Reset(t *testing.T) {
	b := NewMagnitudeBuffer()
	b.Convert(make([]byte, 100))
	b.Reset()
	assert.Empty(t, b.trailing)
}
