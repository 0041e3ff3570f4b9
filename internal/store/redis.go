package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"avl-svr/internal/dispatcher"
	"avl-svr/internal/observability"
	"avl-svr/internal/pipeline"
)

const (
	deviceStateTTL = 24 * time.Hour
	devicesGeoKey  = "devices:geo"
)

func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func deviceStateKey(imei string) string { return "device:" + imei + ":state" }
func trackingChannel(imei string) string { return "device:" + imei + ":tracking" }

// DeviceState mirrors connection status and the latest tracking of every
// device into Redis, indexes fixed positions geographically and publishes
// each tracking on a per-device channel.
type DeviceState struct {
	client redis.UniversalClient
}

func NewDeviceState(client redis.UniversalClient) *DeviceState {
	return &DeviceState{client: client}
}

func (d *DeviceState) Name() string { return "redis" }

func (d *DeviceState) Forward(ctx context.Context, ev dispatcher.Event) error {
	pipe := d.client.Pipeline()
	key := deviceStateKey(ev.IMEI)

	switch ev.Type {
	case dispatcher.EventConnect:
		pipe.HSet(ctx, key, map[string]any{
			"online":       1,
			"remote":       ev.Remote,
			"connected_at": ev.At.Unix(),
		})
	case dispatcher.EventDisconnect:
		pipe.HSet(ctx, key, map[string]any{
			"online":          0,
			"disconnected_at": ev.At.Unix(),
		})
	case dispatcher.EventBatch:
		if len(ev.Trackings) == 0 {
			return nil
		}
		last := ev.Trackings[len(ev.Trackings)-1]
		pipe.HSet(ctx, key, StateFields(last, ev.At))
		if last.Fix == 1 {
			pipe.GeoAdd(ctx, devicesGeoKey, &redis.GeoLocation{
				Name:      ev.IMEI,
				Longitude: last.Lon,
				Latitude:  last.Lat,
			})
		}
		for _, tr := range ev.Trackings {
			payload, err := json.Marshal(tr)
			if err != nil {
				return fmt.Errorf("failed to marshal tracking: %w", err)
			}
			pipe.Publish(ctx, trackingChannel(ev.IMEI), payload)
		}
	default:
		return nil
	}
	pipe.Expire(ctx, key, deviceStateTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisSetErrors.Inc()
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// LastState returns the stored hash for imei; empty when unknown.
func (d *DeviceState) LastState(ctx context.Context, imei string) (map[string]string, error) {
	return d.client.HGetAll(ctx, deviceStateKey(imei)).Result()
}

// StateFields flattens a tracking into hash fields; PermIO keys become
// io_<key>.
func StateFields(tr *pipeline.TrackingObject, received time.Time) map[string]any {
	out := map[string]any{
		"dt":          tr.Datetime,
		"lat":         tr.Lat,
		"lon":         tr.Lon,
		"alt":         tr.Alt,
		"spd":         tr.Spd,
		"crs":         tr.Crs,
		"sats":        tr.Sats,
		"event":       tr.Event,
		"fix":         tr.Fix,
		"msg_type":    tr.MsgType,
		"received_at": received.Unix(),
	}
	if tr.ICCID != "" {
		out["iccid"] = tr.ICCID
	}
	for k, v := range tr.PermIO {
		out["io_"+k] = v
	}
	return out
}
