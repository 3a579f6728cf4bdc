package adsb

import "time"

// The slicePhase* correlators estimate the sign of a Manchester symbol
// from three or four surrounding magnitude samples. The specific
// integer weights were tuned against real 2.4MHz capture files by the
// dump1090/readsb lineage this receiver descends from; they are not
// independently derivable and are reproduced here unchanged.
func slicePhase0(m []uint16, i int) int {
	return 18*int(at(m, i)) - 15*int(at(m, i+1)) - 3*int(at(m, i+2))
}

func slicePhase1(m []uint16, i int) int {
	return 14*int(at(m, i)) - 5*int(at(m, i+1)) - 9*int(at(m, i+2))
}

func slicePhase2(m []uint16, i int) int {
	return 16*int(at(m, i)) + 5*int(at(m, i+1)) - 20*int(at(m, i+2))
}

func slicePhase3(m []uint16, i int) int {
	return 7*int(at(m, i)) + 11*int(at(m, i+1)) - 18*int(at(m, i+2))
}

func slicePhase4(m []uint16, i int) int {
	return 4*int(at(m, i)) + 15*int(at(m, i+1)) - 20*int(at(m, i+2)) + int(at(m, i+3))
}

func at(m []uint16, i int) uint16 {
	if i < 0 || i >= len(m) {
		return 0
	}
	return m[i]
}

func bitVal(cond bool, bit byte) byte {
	if cond {
		return bit
	}
	return 0
}

// sliceByte extracts the next demodulated byte starting at m[idx] with
// the given phase (0..4), returning the byte and the index/phase to
// use for the following byte. Ported from the readsb 2.4MHz
// demodulator's slice_byte, which advances by 19 samples for phases
// 0-3 and 20 samples when wrapping from phase 4 back to phase 0
// (9.6 samples/symbol accumulated error correction).
func sliceByte(m []uint16, idx, phase int) (b byte, nextIdx, nextPhase int) {
	switch phase {
	case 0:
		b = bitVal(slicePhase0(m, idx) > 0, 0x80) |
			bitVal(slicePhase2(m, idx+2) > 0, 0x40) |
			bitVal(slicePhase4(m, idx+4) > 0, 0x20) |
			bitVal(slicePhase1(m, idx+7) > 0, 0x10) |
			bitVal(slicePhase3(m, idx+9) > 0, 0x08) |
			bitVal(slicePhase0(m, idx+12) > 0, 0x04) |
			bitVal(slicePhase2(m, idx+14) > 0, 0x02) |
			bitVal(slicePhase4(m, idx+16) > 0, 0x01)
		return b, idx + 19, 1
	case 1:
		b = bitVal(slicePhase1(m, idx) > 0, 0x80) |
			bitVal(slicePhase3(m, idx+2) > 0, 0x40) |
			bitVal(slicePhase0(m, idx+5) > 0, 0x20) |
			bitVal(slicePhase2(m, idx+7) > 0, 0x10) |
			bitVal(slicePhase4(m, idx+9) > 0, 0x08) |
			bitVal(slicePhase1(m, idx+12) > 0, 0x04) |
			bitVal(slicePhase3(m, idx+14) > 0, 0x02) |
			bitVal(slicePhase0(m, idx+17) > 0, 0x01)
		return b, idx + 19, 2
	case 2:
		b = bitVal(slicePhase2(m, idx) > 0, 0x80) |
			bitVal(slicePhase4(m, idx+2) > 0, 0x40) |
			bitVal(slicePhase1(m, idx+5) > 0, 0x20) |
			bitVal(slicePhase3(m, idx+7) > 0, 0x10) |
			bitVal(slicePhase0(m, idx+10) > 0, 0x08) |
			bitVal(slicePhase2(m, idx+12) > 0, 0x04) |
			bitVal(slicePhase4(m, idx+14) > 0, 0x02) |
			bitVal(slicePhase1(m, idx+17) > 0, 0x01)
		return b, idx + 19, 3
	case 3:
		b = bitVal(slicePhase3(m, idx) > 0, 0x80) |
			bitVal(slicePhase0(m, idx+3) > 0, 0x40) |
			bitVal(slicePhase2(m, idx+5) > 0, 0x20) |
			bitVal(slicePhase4(m, idx+7) > 0, 0x10) |
			bitVal(slicePhase1(m, idx+10) > 0, 0x08) |
			bitVal(slicePhase3(m, idx+12) > 0, 0x04) |
			bitVal(slicePhase0(m, idx+15) > 0, 0x02) |
			bitVal(slicePhase2(m, idx+17) > 0, 0x01)
		return b, idx + 19, 4
	default: // phase 4
		b = bitVal(slicePhase4(m, idx) > 0, 0x80) |
			bitVal(slicePhase1(m, idx+3) > 0, 0x40) |
			bitVal(slicePhase3(m, idx+5) > 0, 0x20) |
			bitVal(slicePhase0(m, idx+8) > 0, 0x10) |
			bitVal(slicePhase2(m, idx+10) > 0, 0x08) |
			bitVal(slicePhase4(m, idx+12) > 0, 0x04) |
			bitVal(slicePhase1(m, idx+15) > 0, 0x02) |
			bitVal(slicePhase3(m, idx+17) > 0, 0x01)
		return b, idx + 20, 0
	}
}

// scoreModesMessage rates how plausible a candidate frame is, cheaply,
// so demodulate2400 can pick the best of several candidate phases
// before paying for full bit-error correction. A frame that passes its
// DF's CRC acceptance rule (see checkRemainder) scores its length in
// bits, so a long frame outranks a short one; a frame that fails it
// scores -1, and an unknown DF or a truncated frame scores -2.
func scoreModesMessage(msg []byte, df uint8, cache *ICAOCache) int {
	if !isKnownDF(df) {
		return -2
	}
	msgLen := ShortMsgBytes
	if isLongDF(df) {
		msgLen = LongMsgBytes
	}
	if len(msg) < msgLen {
		return -2
	}
	rem := calculateCRCRaw(msg[:msgLen])
	if res := checkRemainder(df, rem, 0, cache); res.ok {
		return msgLen * 8
	}
	return -1
}

// Candidate is one demodulated frame emitted by the sample-level
// demodulator, before CRC validation/correction has run.
type Candidate struct {
	Data      [LongMsgBytes]byte
	Len       int
	Score     int
	Phase     int
	Signal    float64
	Timestamp time.Time
}

// Demodulate2400 scans a block of 2.4MHz magnitude samples for Mode S
// preambles and returns every candidate frame found. blockStart is the
// wall-clock time corresponding to samples[0], used to timestamp each
// candidate proportionally to its offset into the block.
func Demodulate2400(samples []uint16, blockStart time.Time, sampleRate float64, cache *ICAOCache) []Candidate {
	var candidates []Candidate

	n := len(samples)
	for pa := 0; pa < n; pa++ {
		if !(at(samples, pa+1) > at(samples, pa+7) &&
			at(samples, pa+12) > at(samples, pa+14) &&
			at(samples, pa+12) > at(samples, pa+15)) {
			continue
		}

		baseNoise := int(at(samples, pa+5)) + int(at(samples, pa+8)) +
			int(at(samples, pa+16)) + int(at(samples, pa+17)) + int(at(samples, pa+18))
		refLevel := (baseNoise * DefaultPreambleThreshold) >> 5

		diff23 := int(at(samples, pa+2)) - int(at(samples, pa+3))
		sum14 := int(at(samples, pa+1)) + int(at(samples, pa+4))
		diff1011 := int(at(samples, pa+10)) - int(at(samples, pa+11))
		common := sum14 - diff23 + int(at(samples, pa+9)) + int(at(samples, pa+12))

		bestScore := -42
		var bestData [LongMsgBytes]byte
		var bestLen, bestPhase int

		tryPhase := func(phase int) {
			data, dataLen, score := demodAtPhase(samples, pa, phase, cache)
			if score > bestScore {
				bestScore = score
				bestData = data
				bestLen = dataLen
				bestPhase = phase
			}
		}

		if pm := common - diff1011; pm >= refLevel {
			tryPhase(4)
			tryPhase(5)
		}
		if pm := common + diff1011; pm >= refLevel {
			tryPhase(6)
			tryPhase(7)
		}
		if pm := sum14 + 2*diff23 + diff1011 + int(at(samples, pa+12)); pm >= refLevel {
			tryPhase(8)
		}

		if bestScore < 0 {
			continue
		}

		offsetSeconds := float64(pa) / sampleRate
		ts := blockStart.Add(time.Duration(offsetSeconds * float64(time.Second)))

		c := Candidate{
			Data:      bestData,
			Len:       bestLen,
			Score:     bestScore,
			Phase:     bestPhase,
			Signal:    signalPower(samples, pa),
			Timestamp: ts,
		}
		candidates = append(candidates, c)

		// Skip ahead past the message we just decoded so we don't
		// rescan the same frame at every subsequent sample offset.
		pa += bestLen*8*12/5 - 1
	}

	return candidates
}

// demodAtPhase slices out a full candidate frame starting try_phase
// samples into the preamble and scores it. try_phase ranges 4..8, per
// the readsb phase-numbering convention: samples 0..18 hold the
// preamble itself, and data begins at sample 19 plus a fractional
// phase offset of try_phase/5 samples.
func demodAtPhase(samples []uint16, pa, tryPhase int, cache *ICAOCache) (data [LongMsgBytes]byte, msgLen int, score int) {
	idx := pa + 19 + tryPhase/5
	phase := tryPhase % 5

	b, idx, phase := sliceByte(samples, idx, phase)
	data[0] = b

	df := (data[0] >> 3) & 0x1F
	bytelen := ShortMsgBytes
	if isLongDF(df) {
		bytelen = LongMsgBytes
	} else if !isKnownDF(df) {
		return data, 0, -2
	}

	for i := 1; i < bytelen; i++ {
		data[i], idx, phase = sliceByte(samples, idx, phase)
	}

	score = scoreModesMessage(data[:bytelen], df, cache)
	return data, bytelen, score
}

// signalPower estimates the received signal power around a detected
// preamble as the mean squared magnitude, with magnitudeLUT's 0..65535
// values scaled to 0..1 first, used for RSSI display and dB-based
// filtering upstream.
func signalPower(samples []uint16, pa int) float64 {
	var sum float64
	count := 0
	for _, off := range [...]int{0, 2, 7, 9, 12, 14, 16} {
		v := float64(at(samples, pa+off)) / 65535.0
		sum += v * v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
