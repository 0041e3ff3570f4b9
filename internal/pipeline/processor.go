package pipeline

import (
	"time"

	"avl-svr/internal/codec"
	"avl-svr/internal/codec/fmxxx"
)

// LiveWindow is how old a single-record frame may be and still count as live.
const LiveWindow = 120 * time.Second

const (
	MsgBuffer = 0
	MsgLive   = 1
)

// permIOKeys selects the IO elements copied into TrackingObject.PermIO.
var permIOKeys = map[uint16]string{
	fmxxx.DIn1:          "din1",
	fmxxx.DOut1:         "dout1",
	fmxxx.Ignition:      "ign",
	fmxxx.Movement:      "mov",
	fmxxx.GSMSignal:     "gsm",
	fmxxx.GnssStatus:    "gnss",
	fmxxx.SleepMode:     "sleep",
	fmxxx.BattLevel:     "batt_lvl",
	fmxxx.BatteryVolt:   "batt_mv",
	fmxxx.ExtVolt:       "ext_mv",
	fmxxx.TotalOdometer: "odo_m",
}

func coordsValid(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

func CalcFix(sats int, lat, lon float64) int {
	if sats > 3 && coordsValid(lat, lon) {
		return 1
	}
	return 0
}

// DecideMsgType marks records from multi-record frames, or older than
// LiveWindow, as buffered.
func DecideMsgType(isBatch bool, ts, now time.Time) int {
	if isBatch {
		return MsgBuffer
	}
	if !ts.IsZero() && now.Sub(ts) > LiveWindow {
		return MsgBuffer
	}
	return MsgLive
}

func PermIO(io codec.IOGroups) map[string]int64 {
	out := make(map[string]int64, len(permIOKeys))
	for _, group := range [][]codec.IOElement{io.N1, io.N2, io.N4, io.N8} {
		for _, e := range group {
			if key, ok := permIOKeys[e.ID]; ok {
				out[key] = e.Value.LookupKey()
			}
		}
	}
	return out
}

func BuildTracking(imei string, rec codec.AVLRecord, msgType int) *TrackingObject {
	sats := int(rec.GPS.Satellites)
	tr := &TrackingObject{
		IMEI:     imei,
		Datetime: rec.Timestamp.UTC().Format(time.RFC3339),
		Lat:      rec.GPS.Latitude,
		Lon:      rec.GPS.Longitude,
		Alt:      int(rec.GPS.Altitude),
		Spd:      int(rec.GPS.Speed),
		Crs:      int(rec.GPS.Angle),
		Sats:     sats,
		Priority: int(rec.Priority),
		Event:    int(rec.EventID),
		PermIO:   PermIO(rec.IO),
		MsgType:  msgType,
		Fix:      CalcFix(sats, rec.GPS.Latitude, rec.GPS.Longitude),
	}
	if e, ok := rec.IO.Find(fmxxx.ICCID); ok && e.Value.Kind() == codec.ValueText {
		tr.ICCID = e.Value.Text()
	}
	return tr
}

// BuildTrackings summarizes every record of one frame.
func BuildTrackings(imei string, records []codec.AVLRecord, now time.Time) []*TrackingObject {
	isBatch := len(records) > 1
	out := make([]*TrackingObject, 0, len(records))
	for _, rec := range records {
		out = append(out, BuildTracking(imei, rec, DecideMsgType(isBatch, rec.Timestamp, now)))
	}
	return out
}
