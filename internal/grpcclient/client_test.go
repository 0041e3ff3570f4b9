package grpcclient

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"avl-svr/internal/codec"
	"avl-svr/internal/dispatcher"
)

type forwarderServer interface {
	SendData(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var forwarderDesc = grpc.ServiceDesc{
	ServiceName: "forwarder.Forwarder",
	HandlerType: (*forwarderServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "SendData",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(forwarderServer).SendData(ctx, in)
		},
	}},
}

type fakeForwarder struct {
	success bool

	mu   sync.Mutex
	reqs []*structpb.Struct
}

func (f *fakeForwarder) SendData(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, in)
	f.mu.Unlock()
	return structpb.NewStruct(map[string]any{"success": f.success})
}

func startForwarder(t *testing.T, impl *fakeForwarder) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer()
	s.RegisterService(&forwarderDesc, impl)
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(s.Stop)
	return ln.Addr().String()
}

func batchEvent() dispatcher.Event {
	now := time.Now()
	recs := []codec.AVLRecord{{
		Timestamp: now,
		GPS:       codec.GPSData{Latitude: 19.4326, Longitude: -99.1332, Satellites: 7, Speed: 30},
		IO: codec.IOGroups{
			N1: []codec.IOElement{codec.NewIOElement(239, codec.IntValue(1))},
		},
	}}
	return dispatcher.NewBatchEvent("352093081452251", "10.0.0.1:1000", recs, now)
}

func TestForwardBatch(t *testing.T) {
	impl := &fakeForwarder{success: true}
	addr := startForwarder(t, impl)

	c, err := NewGRPCClient(addr)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Forward(ctx, batchEvent()))
	require.NoError(t, c.Forward(ctx, dispatcher.NewConnectEvent("1", "", time.Now())))

	impl.mu.Lock()
	defer impl.mu.Unlock()
	require.Len(t, impl.reqs, 1)
	f := impl.reqs[0].AsMap()
	assert.Equal(t, "352093081452251", f["device_id"])
	assert.Equal(t, 30.0, f["spd"])
	assert.Equal(t, 1.0, f["fix"])
	assert.Equal(t, map[string]any{"ign": 1.0}, f["perm_io"])
}

func TestForwardRejected(t *testing.T) {
	addr := startForwarder(t, &fakeForwarder{success: false})
	c, err := NewGRPCClient(addr)
	require.NoError(t, err)
	defer c.Close()

	err = c.Forward(context.Background(), batchEvent())
	assert.ErrorContains(t, err, "failed to send data for device 352093081452251")
}
