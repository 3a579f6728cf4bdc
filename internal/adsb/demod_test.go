package adsb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlicePhase0_SignFollowsDominantSample(t *testing.T) {
	high := []uint16{60000, 0, 0}
	low := []uint16{0, 60000, 0}
	assert.Greater(t, slicePhase0(high, 0), 0)
	assert.Less(t, slicePhase0(low, 0), 0)
}

func TestAt_OutOfRangeReturnsZero(t *testing.T) {
	m := []uint16{1, 2, 3}
	assert.EqualValues(t, 0, at(m, 10))
	assert.EqualValues(t, 3, at(m, 2))
}

func TestSliceByte_AdvancesIndexAndPhase(t *testing.T) {
	m := make([]uint16, 40)
	for i := range m {
		m[i] = 30000
	}
	_, idx, phase := sliceByte(m, 0, 0)
	assert.Equal(t, 19, idx)
	assert.Equal(t, 1, phase)

	_, idx2, phase2 := sliceByte(m, idx, phase)
	assert.Greater(t, idx2, idx)
	assert.NotEqual(t, phase, phase2)
}

func TestDemodulate2400_SilenceProducesNoCandidates(t *testing.T) {
	samples := make([]uint16, 4096)
	got := Demodulate2400(samples, time.Now(), 2400000, nil)
	assert.Empty(t, got)
}

func TestScoreModesMessage_UnknownDFRejected(t *testing.T) {
	msg := make([]byte, LongMsgBytes)
	msg[0] = 31 << 3
	assert.Equal(t, -2, scoreModesMessage(msg, 31, nil))
}

func TestScoreModesMessage_ValidDF11Scores(t *testing.T) {
	data := makeDF11(0x010203)
	score := scoreModesMessage(data[:ShortMsgBytes], DF11, nil)
	assert.Equal(t, ShortMsgBytes*8, score)
}
