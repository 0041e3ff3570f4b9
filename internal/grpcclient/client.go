package grpcclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"avl-svr/internal/dispatcher"
	"avl-svr/internal/pipeline"
)

// SendDataMethod is the forwarder RPC. Requests and replies are
// google.protobuf.Struct messages; the request carries device_id and the
// tracking fields, the reply a boolean "success".
const SendDataMethod = "/forwarder.Forwarder/SendData"

const defaultCallTimeout = 5 * time.Second

type GRPCClient struct {
	conn *grpc.ClientConn
}

func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCClient{conn: conn}, nil
}

func (g *GRPCClient) Close() error {
	return g.conn.Close()
}

func (g *GRPCClient) Name() string { return "grpc" }

// Forward sends every tracking of a batch event; other events are ignored.
func (g *GRPCClient) Forward(ctx context.Context, ev dispatcher.Event) error {
	if ev.Type != dispatcher.EventBatch {
		return nil
	}
	for _, tr := range ev.Trackings {
		if err := g.SendTracking(ctx, tr); err != nil {
			return err
		}
	}
	return nil
}

func (g *GRPCClient) SendTracking(ctx context.Context, tr *pipeline.TrackingObject) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	fields, err := tr.Fields()
	if err != nil {
		return fmt.Errorf("forwarder: encode tracking: %w", err)
	}
	fields["device_id"] = tr.IMEI
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("forwarder: encode tracking: %w", err)
	}

	res := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, SendDataMethod, req, res); err != nil {
		return err
	}
	if ok := res.GetFields()["success"]; ok == nil || !ok.GetBoolValue() {
		return fmt.Errorf("forwarder: failed to send data for device %s", tr.IMEI)
	}
	return nil
}
