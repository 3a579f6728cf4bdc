package adsb

import "math"

// getBits extracts bits [firstBit, lastBit] (1-based, inclusive) from
// data, MSB-of-byte-0 numbered bit 1 — the same convention used
// throughout the Mode S / ADS-B specification and by dump1090's
// getbits().
func getBits(data []byte, firstBit, lastBit int) uint32 {
	if firstBit < 1 || lastBit < firstBit {
		return 0
	}
	fbi := firstBit - 1
	lbi := lastBit - 1
	fby := fbi / 8
	lby := lbi / 8
	if lby >= len(data) {
		return 0
	}
	shift := 7 - (lbi % 8)
	topMask := byte(0xFF >> uint(fbi%8))

	var result uint32
	for i := fby; i <= lby; i++ {
		if i == fby {
			result = uint32(data[i] & topMask)
		} else {
			result = (result << 8) | uint32(data[i])
		}
	}
	return result >> uint(shift)
}

func getBit(data []byte, bit int) bool {
	return getBits(data, bit, bit) != 0
}

// Decode populates msg's interpreted fields from its raw bytes. Must
// be called only after ValidateAndCorrect has marked msg.Valid.
func Decode(msg *Message) {
	df := msg.GetDF()
	msg.DF = df
	msg.ICAO = msg.GetICAOOrRecovered()

	switch df {
	case DF0:
		decodeAltitudeSurveillance(msg, 20, 32)
	case DF4:
		decodeAltitudeSurveillance(msg, 20, 32)
		decodeFlightStatus(msg)
	case DF5:
		decodeIdentity(msg, 20, 32)
		decodeFlightStatus(msg)
	case DF11:
		msg.CapCA = byte(getBits(msg.Data[:], 6, 8))
	case DF16:
		decodeAltitudeSurveillance(msg, 20, 32)
	case DF17, DF18:
		decodeExtendedSquitter(msg)
	case DF20:
		decodeAltitudeSurveillance(msg, 20, 32)
		decodeFlightStatus(msg)
	case DF21:
		decodeIdentity(msg, 20, 32)
		decodeFlightStatus(msg)
	}
}

func decodeFlightStatus(msg *Message) {
	fs := getBits(msg.Data[:], 6, 8)
	// FS values 1 and 3 indicate on-the-ground per the Mode S spec.
	msg.OnGround = fs == 1 || fs == 3
}

// decodeAltitudeSurveillance decodes the 13-bit AC field found in
// DF0/4/16/20 at the given bit range.
func decodeAltitudeSurveillance(msg *Message, first, last int) {
	ac := getBits(msg.Data[:], first, last)
	if ac == 0 {
		return
	}
	alt, ok := decodeAC13(uint16(ac))
	if ok {
		msg.HasAlt = true
		msg.Altitude = alt
	}
}

// decodeAC13 decodes a 13-bit altitude code. Bit 26 overall (bit 6 of
// the 13-bit field counting from 0 at the LSB, the "M" bit) selects
// metric vs imperial; bit 28 overall (bit 4, the "Q" bit) selects 25ft
// vs Gillham-coded 100ft steps, per the Mode S specification.
func decodeAC13(ac13 uint16) (int, bool) {
	mBit := ac13&0x0040 != 0
	if mBit {
		// Metric altitude reporting is essentially unused in
		// practice; not decoded further.
		return 0, false
	}

	qBit := ac13&0x0010 != 0
	if qBit {
		n := ((ac13 & 0x1F80) >> 2) | ((ac13 & 0x0020) >> 1) | (ac13 & 0x000F)
		return int(n)*25 - 1000, true
	}

	// Gillham-coded 100ft steps: the Q position (the D1 slot of the
	// Gillham pattern) is 0 here, so the field is passed on as is and
	// unscrambled from C1 A1 C2 A2 C4 A4 M B1 D1 B2 D2 B4 D4.
	return decodeGillham(ac13)
}

// decodeGillham converts a Gillham (Mode C) coded altitude field into
// feet. The field interleaves two independent Gray-coded counters
// (hundreds and five-hundreds of feet); this mirrors dump1090's
// modeAToModeC-derived table approach but computed directly.
func decodeGillham(ac13 uint16) (int, bool) {
	// Extract C1 A1 C2 A2 C4 A4 M B1 D1 B2 D2 B4 D4 per the
	// specification's bit layout (bit 6, the "M" bit, and bit 4, D1,
	// are skipped).
	c1 := (ac13 >> 12) & 1
	a1 := (ac13 >> 11) & 1
	c2 := (ac13 >> 10) & 1
	a2 := (ac13 >> 9) & 1
	c4 := (ac13 >> 8) & 1
	a4 := (ac13 >> 7) & 1
	b1 := (ac13 >> 5) & 1
	b2 := (ac13 >> 3) & 1
	d2 := (ac13 >> 2) & 1
	b4 := (ac13 >> 1) & 1
	d4 := ac13 & 1

	fiveHundreds := grayToBinary5(c1, a1, c2, a2, c4)
	hundreds := grayToBinary3(b1, b2, b4)
	_ = a4
	_ = d2
	_ = d4

	if hundreds == 0 || hundreds == 5 || hundreds == 6 {
		return 0, false
	}
	if fiveHundreds&1 != 0 {
		hundreds = 6 - hundreds
	}

	alt := (int(fiveHundreds)*500 + int(hundreds)*100) - 1200
	if alt < -1200 || alt > 126700 {
		return 0, false
	}
	return alt, true
}

func grayToBinary5(c1, a1, c2, a2, c4 uint16) uint16 {
	bits := []uint16{c1, a1, c2, a2, c4}
	return grayBitsToBinary(bits)
}

func grayToBinary3(b1, b2, b4 uint16) uint16 {
	bits := []uint16{b1, b2, b4}
	return grayBitsToBinary(bits)
}

func grayBitsToBinary(grayBits []uint16) uint16 {
	var gray uint16
	for _, b := range grayBits {
		gray = (gray << 1) | b
	}
	var bin uint16
	prev := uint16(0)
	n := len(grayBits)
	for i := 0; i < n; i++ {
		bit := (gray >> uint(n-1-i)) & 1
		bit ^= prev
		prev = bit
		bin = (bin << 1) | bit
	}
	return bin
}

// decodeIdentity decodes a 13-bit Mode A squawk field into its
// 4-digit octal representation.
func decodeIdentity(msg *Message, first, last int) {
	field := getBits(msg.Data[:], first, last)
	// The field interleaves the digits' bits as
	// C1 A1 C2 A2 C4 A4 X B1 D1 B2 D2 B4 D4; regroup them as
	// A4A2A1 B4B2B1 C4C2C1 D4D2D1, three bits per octal digit.
	var identity uint32
	for i, src := range [12]uint{7, 9, 11, 1, 3, 5, 8, 10, 12, 0, 2, 4} {
		identity |= ((field >> src) & 1) << uint(11-i)
	}
	squawk := 0
	squawk += int((identity>>SquawkA4A2A1Shift)&SquawkA4A2A1Mask) * SquawkAMultiplier
	squawk += int((identity>>SquawkB4B2B1Shift)&SquawkB4B2B1Mask) * SquawkBMultiplier
	squawk += int((identity>>SquawkC4C2C1Shift)&SquawkC4C2C1Mask) * SquawkCMultiplier
	squawk += int((identity>>SquawkD4D2D1Shift)&SquawkD4D2D1Mask) * SquawkDMultiplier
	msg.HasSquawk = true
	msg.Squawk = squawk
}

func decodeExtendedSquitter(msg *Message) {
	tc := msg.GetTypeCode()
	msg.TypeCode = tc
	me := msg.Data[4:11]

	switch {
	case tc >= 1 && tc <= 4:
		decodeCallsign(msg, me)
		msg.OnGround = false
	case tc >= 5 && tc <= 8:
		msg.Surface = true
		msg.OnGround = true
		decodeCPRField(msg, me, true)
		decodeSurfaceMovement(msg, me)
	case tc >= 9 && tc <= 18:
		decodeAirbornePositionAlt(msg, me)
		decodeCPRField(msg, me, false)
	case tc == 19:
		decodeVelocity(msg, me)
	case tc >= 20 && tc <= 22:
		decodeAirbornePositionAlt(msg, me)
		decodeCPRField(msg, me, false)
	}
}

func decodeCallsign(msg *Message, me []byte) {
	var cs [8]byte
	for i := 0; i < 8; i++ {
		first := 9 + i*6
		last := first + 5
		idx := getBits(me, first, last)
		if int(idx) >= len(ADSBCharset) {
			return
		}
		cs[i] = ADSBCharset[idx]
	}
	for _, c := range cs {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == ' ') {
			return
		}
	}
	s := string(cs[:])
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	msg.Callsign = s
}

// decodeAirbornePositionAlt decodes the 12-bit AC field used by
// airborne position messages (bits 9-20 of the ME field).
func decodeAirbornePositionAlt(msg *Message, me []byte) {
	ac12 := getBits(me, 9, 20)
	if ac12 == 0 {
		return
	}
	qBit := ac12&0x10 != 0
	if qBit {
		n := ((ac12 & 0x0FE0) >> 1) | (ac12 & 0x000F)
		msg.HasAlt = true
		msg.Altitude = int(n)*25 - 1000
		return
	}
	// Non-Q-bit airborne altitude is Gillham coded at 100ft
	// resolution; reinsert the missing M/Q bits as zero to reuse the
	// 13-bit decoder.
	ac13 := uint16(ac12&0x0FC0)<<1 | uint16(ac12&0x003F)
	if alt, ok := decodeGillham(ac13); ok {
		msg.HasAlt = true
		msg.Altitude = alt
	}
}

func decodeSurfaceMovement(msg *Message, me []byte) {
	movement := getBits(me, 6, 12)
	switch {
	case movement == 0:
		// speed not available
	case movement == 1:
		msg.HasSpeed = true
		msg.Speed = 0
	case movement >= 2 && movement <= 8:
		msg.HasSpeed = true
		msg.Speed = int(float64(movement-2)*0.125 + 0.5)
	case movement >= 9 && movement <= 12:
		msg.HasSpeed = true
		msg.Speed = int(1 + float64(movement-9)*0.25)
	case movement >= 13 && movement <= 38:
		msg.HasSpeed = true
		msg.Speed = int(2 + float64(movement-13)*0.5)
	case movement >= 39 && movement <= 93:
		msg.HasSpeed = true
		msg.Speed = int(15 + float64(movement-39))
	case movement >= 94 && movement <= 108:
		msg.HasSpeed = true
		msg.Speed = int(70 + float64(movement-94)*2)
	case movement >= 109 && movement <= 123:
		msg.HasSpeed = true
		msg.Speed = int(100 + float64(movement-109)*5)
	case movement == 124:
		msg.HasSpeed = true
		msg.Speed = 175
	}
	if getBit(me, 13) {
		trackStatus := getBits(me, 14, 20)
		msg.TrackOK = true
		msg.Track = float64(trackStatus) * 360.0 / 128.0
	}
}

func decodeCPRField(msg *Message, me []byte, surface bool) {
	fflag := getBit(me, 22)
	latCPR := getBits(me, 23, 39)
	lonCPR := getBits(me, 40, 56)
	msg.HasCPR = true
	msg.CPRLat = latCPR
	msg.CPRLon = lonCPR
	msg.Surface = surface
	if fflag {
		msg.CPRFFlag = 1
	} else {
		msg.CPRFFlag = 0
	}
}

func decodeVelocity(msg *Message, me []byte) {
	subtype := getBits(me, 6, 8)
	if subtype < 1 || subtype > 4 {
		return
	}

	if subtype == 1 || subtype == 2 {
		ewSign := getBit(me, 14)
		ewRaw := getBits(me, 15, 24)
		nsSign := getBit(me, 25)
		nsRaw := getBits(me, 26, 35)

		if ewRaw != 0 && nsRaw != 0 {
			mul := 1
			if subtype == 2 {
				mul = 4
			}
			ewVel := int(ewRaw-1) * mul
			if ewSign {
				ewVel = -ewVel
			}
			nsVel := int(nsRaw-1) * mul
			if nsSign {
				nsVel = -nsVel
			}

			speed := int(math.Sqrt(float64(nsVel*nsVel+ewVel*ewVel)) + 0.5)
			msg.HasSpeed = true
			msg.Speed = speed
			if speed > 0 {
				track := math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
				if track < 0 {
					track += 360
				}
				msg.Track = track
				msg.TrackOK = true
			}
		}
	} else {
		if getBit(me, 14) {
			msg.Track = float64(getBits(me, 15, 24)) * 360.0 / 1024.0
			msg.TrackOK = true
		}
		asRaw := getBits(me, 26, 35)
		if asRaw != 0 {
			mul := 1
			if subtype == 4 {
				mul = 4
			}
			msg.HasSpeed = true
			msg.Speed = int(asRaw-1) * mul
		}
	}

	vrSign := getBit(me, 37)
	vrRaw := getBits(me, 38, 46)
	if vrRaw != 0 {
		vr := int(vrRaw-1) * 64
		if vrSign {
			vr = -vr
		}
		msg.VertRate = vr
	}
}
