// Package dispatcher fans session events out to the downstream forwarders.
// Every forwarder gets its own bounded queue and worker; a slow or failing
// forwarder drops its own events and never blocks a session.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"avl-svr/internal/codec"
	"avl-svr/internal/observability"
	"avl-svr/internal/pipeline"
)

type EventType string

const (
	EventConnect    EventType = "device_connect"
	EventBatch      EventType = "batch"
	EventDisconnect EventType = "device_disconnect"
)

// Event is one session milestone. Records and Trackings are only set for
// EventBatch and must not be modified by forwarders.
type Event struct {
	Type      EventType
	IMEI      string
	Remote    string
	Records   []codec.AVLRecord
	Trackings []*pipeline.TrackingObject
	At        time.Time
}

func NewConnectEvent(imei, remote string, at time.Time) Event {
	return Event{Type: EventConnect, IMEI: imei, Remote: remote, At: at}
}

func NewDisconnectEvent(imei, remote string, at time.Time) Event {
	return Event{Type: EventDisconnect, IMEI: imei, Remote: remote, At: at}
}

func NewBatchEvent(imei, remote string, records []codec.AVLRecord, at time.Time) Event {
	return Event{
		Type:      EventBatch,
		IMEI:      imei,
		Remote:    remote,
		Records:   records,
		Trackings: pipeline.BuildTrackings(imei, records, at),
		At:        at,
	}
}

// Forwarder delivers events to one downstream system.
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, ev Event) error
}

type route struct {
	fwd     Forwarder
	queue   chan Event
	dropped atomic.Uint64
}

type Dispatcher struct {
	logger  *slog.Logger
	routes  []*route
	timeout time.Duration
}

// New builds a dispatcher with one queue of queueSize per forwarder. timeout
// bounds each Forward call.
func New(logger *slog.Logger, queueSize int, timeout time.Duration, forwarders ...Forwarder) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{logger: logger.With("component", "dispatcher"), timeout: timeout}
	for _, f := range forwarders {
		if f == nil {
			continue
		}
		d.routes = append(d.routes, &route{fwd: f, queue: make(chan Event, queueSize)})
	}
	return d
}

// Dispatch enqueues ev on every forwarder without blocking.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil {
		return
	}
	for _, r := range d.routes {
		select {
		case r.queue <- ev:
		default:
			r.dropped.Add(1)
			observability.ForwardDrops.WithLabelValues(r.fwd.Name()).Inc()
		}
	}
}

// Dropped returns the number of events the named forwarder lost to a full
// queue.
func (d *Dispatcher) Dropped(name string) uint64 {
	for _, r := range d.routes {
		if r.fwd.Name() == name {
			return r.dropped.Load()
		}
	}
	return 0
}

// Run starts one worker per forwarder and blocks until ctx is done. Events
// still queued at that point are delivered before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, r := range d.routes {
		wg.Add(1)
		go func(r *route) {
			defer wg.Done()
			d.work(ctx, r)
		}(r)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) work(ctx context.Context, r *route) {
	for {
		select {
		case ev := <-r.queue:
			d.deliver(context.Background(), r.fwd, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-r.queue:
					d.deliver(context.Background(), r.fwd, ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, f Forwarder, ev Event) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := f.Forward(ctx, ev); err != nil {
		observability.ForwardErrors.WithLabelValues(f.Name()).Inc()
		d.logger.Warn("forward failed",
			"forwarder", f.Name(), "event", ev.Type, "imei", ev.IMEI, "err", err)
	}
}
