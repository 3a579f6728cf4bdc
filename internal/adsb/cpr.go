package adsb

import (
	"math"
	"time"
)

// cprNLTable holds the precomputed number-of-longitude-zones boundary
// latitudes (in degrees) for each NL value 1..59, used by cprNL to
// avoid the transcendental computation on every lookup.
var cprNLTable = [59]float64{
	10.47047130, 14.82817437, 18.18626357, 21.02939493,
	23.54504487, 25.82924707, 27.93898710, 29.91135686,
	31.77209708, 33.53993436, 35.22899598, 36.85025108,
	38.41241892, 39.92256684, 41.38651832, 42.80914012,
	44.19454951, 45.54626723, 46.86733252, 48.16039128,
	49.42776439, 50.67150166, 51.89342469, 53.09516153,
	54.27817472, 55.44378444, 56.59318756, 57.72747354,
	58.84763776, 59.95459277, 61.04917774, 62.13216659,
	63.20427479, 64.26616523, 65.31845310, 66.36171008,
	67.39646774, 68.42322022, 69.44242631, 70.45451075,
	71.45986473, 72.45884545, 73.45177442, 74.43893416,
	75.42056257, 76.39684391, 77.36789461, 78.33374083,
	79.29428225, 80.24923213, 81.19801349, 82.13956981,
	83.07199445, 83.99173563, 84.89166191, 85.75541621,
	86.53536998, 87.00000000, 87.00000000,
}

// cprNL returns the number of longitude zones for the given latitude,
// per the global CPR decoding algorithm.
func cprNL(lat float64) int {
	if lat < 0 {
		lat = -lat
	}
	if lat < 10.47047130 {
		return 59
	}
	if lat >= 87.0 {
		return 1
	}
	for i, bound := range cprNLTable {
		if lat < bound {
			return 59 - i
		}
	}
	return 1
}

func cprN(lat float64, odd bool) int {
	nl := cprNL(lat)
	if odd {
		nl--
	}
	if nl < 1 {
		nl = 1
	}
	return nl
}

func cprDlon(lat float64, odd bool) float64 {
	return 360.0 / float64(cprN(lat, odd))
}

// DecodeGlobalAirborne decodes a position from one even and one odd
// CPR frame, neither of which needs a prior reference position. recent
// is whichever of the two frames arrived last and determines which
// zone table is used for longitude.
func DecodeGlobalAirborne(even, odd CPRFrame, recentIsOdd bool) (Position, bool) {
	return decodeGlobal(even, odd, recentIsOdd, 360.0/60.0, 360.0/59.0)
}

// DecodeGlobalSurface decodes a surface position pair. Surface
// positions need a rough reference latitude to disambiguate the
// result, since the surface CPR encoding repeats every 90 degrees.
func DecodeGlobalSurface(even, odd CPRFrame, recentIsOdd bool, refLat float64) (Position, bool) {
	pos, ok := decodeGlobal(even, odd, recentIsOdd, 90.0/60.0, 90.0/59.0)
	if !ok {
		return pos, false
	}
	// Surface CPR only resolves longitude to within 90 degrees;
	// disambiguate using the reference position's quadrant.
	for pos.Longitude-refLat > 45 {
		pos.Longitude -= 90
	}
	for pos.Longitude-refLat < -45 {
		pos.Longitude += 90
	}
	return pos, true
}

func decodeGlobal(even, odd CPRFrame, recentIsOdd bool, dlat0, dlat1 float64) (Position, bool) {
	latCPR0 := float64(even.LatCPR) / CPRMax
	latCPR1 := float64(odd.LatCPR) / CPRMax
	lonCPR0 := float64(even.LonCPR) / CPRMax
	lonCPR1 := float64(odd.LonCPR) / CPRMax

	j := math.Floor(59*latCPR0 - 60*latCPR1 + 0.5)

	rlat0 := dlat0 * (cprModFloat(j, 60) + latCPR0)
	rlat1 := dlat1 * (cprModFloat(j, 59) + latCPR1)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if cprNL(rlat0) != cprNL(rlat1) {
		// Straddles a transition between NL zones; no single valid fix.
		return Position{}, false
	}

	var lat, lon float64
	var ts time.Time
	if recentIsOdd {
		nl := cprNL(rlat1)
		ni := nl - 1
		if ni < 1 {
			ni = 1
		}
		i := math.Floor((lonCPR0*float64(nl-1) - lonCPR1*float64(nl)) + 0.5)
		lon = (360.0 / float64(ni)) * (cprModFloat(i, float64(ni)) + lonCPR1)
		lat = rlat1
		ts = odd.Timestamp
	} else {
		nl := cprNL(rlat0)
		ni := nl
		if ni < 1 {
			ni = 1
		}
		i := math.Floor((lonCPR0*float64(nl-1) - lonCPR1*float64(nl)) + 0.5)
		lon = (360.0 / float64(ni)) * (cprModFloat(i, float64(ni)) + lonCPR0)
		lat = rlat0
		ts = even.Timestamp
	}

	if lon > 180 {
		lon -= 360
	}

	return Position{Latitude: lat, Longitude: lon, Timestamp: ts}, true
}

// DecodeLocal decodes a single CPR frame relative to a known reference
// position (e.g. the receiver's own location, or an aircraft's last
// known fix), per the relative/local CPR algorithm. Used when only one
// parity of frame has been received recently.
func DecodeLocal(frame CPRFrame, refLat, refLon float64) (Position, bool) {
	odd := frame.FFlag == 1
	dlat := 360.0 / 60.0
	if odd {
		dlat = 360.0 / 59.0
	}

	latCPR := float64(frame.LatCPR) / CPRMax
	lonCPR := float64(frame.LonCPR) / CPRMax

	j := math.Floor(refLat/dlat) + math.Floor(0.5+cprModFloat(refLat, dlat)/dlat-latCPR)
	lat := dlat * (j + latCPR)

	dlon := cprDlon(lat, odd)

	m := math.Floor(refLon/dlon) + math.Floor(0.5+cprModFloat(refLon, dlon)/dlon-lonCPR)
	lon := dlon * (m + lonCPR)

	if math.Abs(lat-refLat) > 90 || math.Abs(lon-refLon) > 90 {
		return Position{}, false
	}

	return Position{Latitude: lat, Longitude: lon, Timestamp: frame.Timestamp}, true
}

func cprModFloat(a, b float64) float64 {
	res := math.Mod(a, b)
	if res < 0 {
		res += b
	}
	return res
}
