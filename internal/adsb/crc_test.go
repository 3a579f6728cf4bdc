package adsb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDF11(icao uint32) [LongMsgBytes]byte {
	var data [LongMsgBytes]byte
	data[0] = DF11 << 3
	data[1] = byte(icao >> 16)
	data[2] = byte(icao >> 8)
	data[3] = byte(icao)
	crc := calculateCRCRaw(data[:4])
	data[4] = byte(crc >> 16)
	data[5] = byte(crc >> 8)
	data[6] = byte(crc)
	return data
}

func makeDF0(icao uint32) [LongMsgBytes]byte {
	var data [LongMsgBytes]byte
	data[0] = DF0 << 3
	crc := calculateCRCRaw(data[:4]) ^ icao
	data[4] = byte(crc >> 16)
	data[5] = byte(crc >> 8)
	data[6] = byte(crc)
	return data
}

func TestValidateAndCorrect_DF11Valid(t *testing.T) {
	data := makeDF11(0xABCDEF)
	msg := &Message{Data: data, Len: ShortMsgBytes, Timestamp: time.Now()}

	single, double := ValidateAndCorrect(msg, nil, DefaultCorrectionPolicy())
	require.True(t, msg.Valid)
	assert.Equal(t, "valid", msg.CRCType)
	assert.Zero(t, single)
	assert.Zero(t, double)
	assert.Equal(t, uint32(0xABCDEF), msg.GetICAO())
}

func TestValidateAndCorrect_DF11SingleBitError(t *testing.T) {
	data := makeDF11(0x123456)
	data[2] ^= 0x01 // flip one bit in the ICAO field
	msg := &Message{Data: data, Len: ShortMsgBytes, Timestamp: time.Now()}

	single, double := ValidateAndCorrect(msg, nil, DefaultCorrectionPolicy())
	require.True(t, msg.Valid)
	assert.Equal(t, "corrected-1", msg.CRCType)
	assert.EqualValues(t, 1, single)
	assert.Zero(t, double)
	assert.Equal(t, uint32(0x123456), msg.GetICAO())
}

func TestValidateAndCorrect_AdditiveDFRequiresKnownICAO(t *testing.T) {
	cache := NewICAOCache(time.Minute)
	data := makeDF0(0x4840D6)
	msg := &Message{Data: data, Len: ShortMsgBytes, Timestamp: time.Now()}

	// unknown to the cache: rejected even though the arithmetic is
	// internally consistent, since we cannot tell a real ICAO XOR from
	// noise without a corroborating recent sighting.
	single, double := ValidateAndCorrect(msg, cache, DefaultCorrectionPolicy())
	assert.False(t, msg.Valid)
	assert.Zero(t, single)
	assert.Zero(t, double)

	cache.Add(0x4840D6)
	msg2 := &Message{Data: data, Len: ShortMsgBytes, Timestamp: time.Now()}
	ValidateAndCorrect(msg2, cache, DefaultCorrectionPolicy())
	require.True(t, msg2.Valid)
	assert.Equal(t, uint32(0x4840D6), msg2.ICAO)
}

func TestValidateAndCorrect_InvalidDFRejected(t *testing.T) {
	var data [LongMsgBytes]byte
	data[0] = 31 << 3 // DF 31 is not in the known set
	msg := &Message{Data: data, Len: ShortMsgBytes}

	ValidateAndCorrect(msg, nil, DefaultCorrectionPolicy())
	assert.False(t, msg.Valid)
	assert.Equal(t, "invalid-df", msg.CRCType)
}

func TestCalculateCRC_ZeroMessageIsZero(t *testing.T) {
	var data [ShortMsgBytes]byte
	assert.EqualValues(t, 0, CalculateCRC(data[:]))
}
