package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type echoStream struct {
	ctx  context.Context
	in   chan string
	out  chan string
	done chan struct{}
}

func (e *echoStream) Send(v string) error {
	select {
	case e.in <- v:
		return nil
	case <-e.done:
		return io.ErrClosedPipe
	}
}

func (e *echoStream) Recv() (string, error) {
	select {
	case v := <-e.in:
		return v, nil
	case <-e.done:
		return "", io.EOF
	case <-e.ctx.Done():
		return "", e.ctx.Err()
	}
}

func (e *echoStream) Header() (metadata.MD, error) { return nil, nil }
func (e *echoStream) Trailer() metadata.MD         { return nil }
func (e *echoStream) CloseSend() error             { close(e.done); return nil }
func (e *echoStream) Context() context.Context     { return e.ctx }
func (e *echoStream) SendMsg(m any) error          { return nil }
func (e *echoStream) RecvMsg(m any) error          { return nil }

func newEchoFactory() (Factory[*echoStream, string, string], *echoStream) {
	var stream *echoStream
	factory := func(ctx context.Context, opts ...grpc.CallOption) (*echoStream, error) {
		stream = &echoStream{ctx: ctx, in: make(chan string, 8), done: make(chan struct{})}
		return stream, nil
	}
	return factory, stream
}

func TestDuplexStream_sendIsEchoedToSubscriber(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	factory, _ := newEchoFactory()
	ds, err := newDuplexStream[*echoStream, string, string](ctx, factory)
	require.NoError(t, err)
	defer ds.Close()

	out := make(chan string, 1)
	unsub := ds.Subscribe(out)
	defer unsub()

	require.NoError(t, ds.Send(ctx, "hello"))

	select {
	case v := <-out:
		require.Equal(t, "hello", v)
	case <-ctx.Done():
		t.Fatal("timed out waiting for echo")
	}
}

func TestDuplexStream_closeEndsRunLoop(t *testing.T) {
	ctx := context.Background()
	factory, _ := newEchoFactory()
	ds, err := newDuplexStream[*echoStream, string, string](ctx, factory)
	require.NoError(t, err)

	require.NoError(t, ds.Close())

	select {
	case <-ds.Done():
	default:
		t.Fatal("expected Done to be closed after Close")
	}
}

func TestDuplexStream_multipleSubscribersAllReceive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	factory, _ := newEchoFactory()
	ds, err := newDuplexStream[*echoStream, string, string](ctx, factory)
	require.NoError(t, err)
	defer ds.Close()

	a := make(chan string, 1)
	b := make(chan string, 1)
	cancelA := ds.Subscribe(a)
	cancelB := ds.Subscribe(b)
	defer cancelA()
	defer cancelB()

	require.NoError(t, ds.Send(ctx, "both"))

	require.Equal(t, "both", <-a)
	require.Equal(t, "both", <-b)
}
