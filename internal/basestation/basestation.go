// Package basestation serializes decoded Mode S / ADS-B messages into
// the textual SBS (Kinetic Avionics BaseStation) CSV format, shared by
// the SBS_OUT network service and the rotated on-disk log.
package basestation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
	"go1090/internal/logging"
)

// Transmission types, per the BaseStation "MSG" record.
const (
	TransmissionIdentification = 1
	TransmissionSurface        = 2
	TransmissionAirborne       = 3
	TransmissionVelocity       = 4
	TransmissionSurveillanceAlt = 5
	TransmissionSurveillanceID  = 6
	TransmissionAirToAir        = 7
	TransmissionAllCall         = 8
)

// Record is the field set of one BaseStation "MSG" line, in wire
// order. String fields are left empty when the corresponding value
// was not present in the source message, matching dump1090's own
// partial-field behaviour.
type Record struct {
	TransmissionType int
	SessionID        string
	AircraftID       int
	HexIdent         string
	FlightID         int
	Generated        time.Time
	Logged           time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// Format renders r as the 22-field CSV line, without line terminator.
func (r Record) Format() string {
	fields := []string{
		"MSG",
		strconv.Itoa(r.TransmissionType),
		r.SessionID,
		strconv.Itoa(r.AircraftID),
		r.HexIdent,
		strconv.Itoa(r.FlightID),
		r.Generated.Format("2006/01/02"),
		r.Generated.Format("15:04:05.000"),
		r.Logged.Format("2006/01/02"),
		r.Logged.Format("15:04:05.000"),
		r.Callsign,
		r.Altitude,
		r.GroundSpeed,
		r.Track,
		r.Latitude,
		r.Longitude,
		r.VerticalRate,
		r.Squawk,
		r.Alert,
		r.Emergency,
		r.SPI,
		r.IsOnGround,
	}
	return strings.Join(fields, ",")
}

// Formatter turns decoded messages into Records, minting a stable
// per-ICAO AircraftID the way a real BaseStation session does (the
// teacher's and dump1090's own formatters hardcode AircraftID=1,
// which collapses every aircraft onto one BaseStation "track"; this
// assigns a fresh monotonic ID to each newly seen ICAO instead).
type Formatter struct {
	mu          sync.Mutex
	sessionID   string
	aircraftIDs map[uint32]int
	nextID      int
}

// NewFormatter creates a Formatter tagging every record with sessionID
// (typically a per-process uuid.UUID rendered as a string).
func NewFormatter(sessionID uuid.UUID) *Formatter {
	return &Formatter{
		sessionID:   sessionID.String(),
		aircraftIDs: make(map[uint32]int),
		nextID:      1,
	}
}

func (f *Formatter) aircraftID(icao uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.aircraftIDs[icao]; ok {
		return id
	}
	id := f.nextID
	f.aircraftIDs[icao] = id
	f.nextID++
	return id
}

// Serialize renders msg (already decoded by internal/adsb) as a
// BaseStation "MSG" line. lat/lon/hasPos carry the aircraft's current
// decoded position, since a single raw frame only ever carries one
// CPR half; the registry resolves the full fix across odd/even pairs.
func (f *Formatter) Serialize(msg *adsb.Message, lat, lon float64, hasPos bool) (string, bool) {
	rec := Record{
		SessionID:  f.sessionID,
		AircraftID: f.aircraftID(msg.ICAO),
		HexIdent:   fmt.Sprintf("%06X", msg.ICAO),
		FlightID:   f.aircraftID(msg.ICAO),
		Generated:  msg.Timestamp,
		Logged:     msg.Timestamp,
		IsOnGround: onGroundField(msg.OnGround),
	}

	switch msg.DF {
	case adsb.DF17, adsb.DF18:
		switch {
		case msg.TypeCode >= 1 && msg.TypeCode <= 4:
			rec.TransmissionType = TransmissionIdentification
			rec.Callsign = msg.Callsign

		case msg.TypeCode >= 5 && msg.TypeCode <= 8:
			rec.TransmissionType = TransmissionSurface
			rec.IsOnGround = "1"
			if hasPos {
				rec.Latitude = formatCoord(lat)
				rec.Longitude = formatCoord(lon)
			}
			if msg.HasSpeed {
				rec.GroundSpeed = strconv.Itoa(msg.Speed)
			}
			if msg.TrackOK {
				rec.Track = formatTrack(msg.Track)
			}

		case msg.TypeCode >= 9 && msg.TypeCode <= 18, msg.TypeCode >= 20 && msg.TypeCode <= 22:
			rec.TransmissionType = TransmissionAirborne
			if msg.HasAlt {
				rec.Altitude = strconv.Itoa(msg.Altitude)
			}
			if hasPos {
				rec.Latitude = formatCoord(lat)
				rec.Longitude = formatCoord(lon)
			}

		case msg.TypeCode == 19:
			rec.TransmissionType = TransmissionVelocity
			if msg.HasSpeed {
				rec.GroundSpeed = strconv.Itoa(msg.Speed)
			}
			if msg.TrackOK {
				rec.Track = formatTrack(msg.Track)
			}
			if msg.VertRate != 0 {
				rec.VerticalRate = strconv.Itoa(msg.VertRate)
			}

		default:
			return "", false
		}

	case adsb.DF11:
		rec.TransmissionType = TransmissionAllCall

	case adsb.DF0, adsb.DF16:
		rec.TransmissionType = TransmissionAirToAir
		if msg.HasAlt {
			rec.Altitude = strconv.Itoa(msg.Altitude)
		}

	case adsb.DF4, adsb.DF20:
		rec.TransmissionType = TransmissionSurveillanceAlt
		if msg.HasAlt {
			rec.Altitude = strconv.Itoa(msg.Altitude)
		}

	case adsb.DF5, adsb.DF21:
		rec.TransmissionType = TransmissionSurveillanceID
		if msg.HasSquawk {
			rec.Squawk = fmt.Sprintf("%04d", msg.Squawk)
		}

	default:
		return "", false
	}

	return rec.Format(), true
}

func onGroundField(onGround bool) string {
	if onGround {
		return "1"
	}
	return "0"
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatTrack(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Writer persists formatted records to a rotated on-disk log, in
// addition to whatever network clients SBS_OUT is also serving.
type Writer struct {
	rotator *logging.LogRotator
	logger  *logrus.Logger
}

// NewWriter wraps an already-open LogRotator.
func NewWriter(rotator *logging.LogRotator, logger *logrus.Logger) *Writer {
	return &Writer{rotator: rotator, logger: logger}
}

// WriteLine appends one formatted SBS line (without terminator) to the
// rotated log.
func (w *Writer) WriteLine(line string) error {
	writer, err := w.rotator.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get log writer: %w", err)
	}
	if _, err := writer.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("failed to write SBS line: %w", err)
	}
	return nil
}
