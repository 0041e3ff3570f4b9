package codec

import (
	"fmt"
	"strings"
)

// FormatRecord renders a record as an indented multi-line block for debug
// logs.
func FormatRecord(rec AVLRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record Timestamp: %s\n", rec.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "  Priority: %d\n", rec.Priority)
	fmt.Fprintf(&b, "  GPS: lat=%.6f, lon=%.6f, alt=%dm, speed=%dkm/h, sats=%d\n",
		rec.GPS.Latitude, rec.GPS.Longitude, rec.GPS.Altitude, rec.GPS.Speed, rec.GPS.Satellites)
	fmt.Fprintf(&b, "  Event IO ID: %d\n", rec.EventID)
	fmt.Fprintf(&b, "  IO count total: %d\n", rec.IO.Len())

	groups := []struct {
		name  string
		elems []IOElement
	}{
		{"N1", rec.IO.N1},
		{"N2", rec.IO.N2},
		{"N4", rec.IO.N4},
		{"N8", rec.IO.N8},
		{"NX", rec.IO.NX},
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "  %s count: %d\n", g.name, len(g.elems))
		for _, e := range g.elems {
			val := e.Value.String()
			if e.Dimension != "" {
				val += " " + e.Dimension
			}
			if e.ValueHuman != nil && *e.ValueHuman != "" {
				val += " (" + *e.ValueHuman + ")"
			}
			fmt.Fprintf(&b, "    %s (ID=%d) -> %s\n", e.Label, e.ID, val)
		}
	}
	return b.String()
}
