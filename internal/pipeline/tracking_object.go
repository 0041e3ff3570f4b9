package pipeline

import "encoding/json"

// TrackingObject is the flat per-record summary handed to the forwarders
// (redis, gRPC, proxy link, live feed).
type TrackingObject struct {
	IMEI     string `json:"imei"`
	Datetime string `json:"dt"`

	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Alt      int     `json:"alt"`
	Spd      int     `json:"spd"`
	Crs      int     `json:"crs"`
	Sats     int     `json:"sats"`
	Priority int     `json:"priority"`
	Event    int     `json:"event"`

	PermIO map[string]int64 `json:"perm_io"`
	ICCID  string           `json:"iccid,omitempty"`

	MsgType int `json:"msg_type"` // 1=live, 0=buffer
	Fix     int `json:"fix"`      // 1 si sats>3 y coords válidas
}

// Fields is the object as a generic map, the shape structpb and redis
// hashes take.
func (t *TrackingObject) Fields() (map[string]any, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
