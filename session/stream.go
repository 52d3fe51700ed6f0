package session

import (
	"context"
	"io"
	"net"
	"sync"

	"google.golang.org/grpc"
)

// ClientStream models a bidirectional gRPC stream client, narrowed to what
// the duplex engine below needs. A generated gRPC client stub for a
// bidirectional-streaming RPC has this shape (a server-streaming stub has no
// Send method and does not); serialization framing and transport mechanics
// otherwise stay out of this package's scope.
type ClientStream[Req, Res any] interface {
	Send(Req) error
	Recv() (Res, error)
	grpc.ClientStream
}

// Factory models a method that opens a ClientStream, matching the shape of a
// generated gRPC client's streaming-RPC method.
type Factory[T ClientStream[Req, Res], Req, Res any] func(ctx context.Context, opts ...grpc.CallOption) (T, error)

// duplexStream wraps a bidirectional ClientStream with concurrency-friendly
// Send and Subscribe methods, so that a stream's single underlying
// connection can be driven by one request-sending goroutine and fanned out
// to any number of response subscribers.
//
// A dedicated goroutine drives Recv in a loop and publishes every response to
// current subscribers; another drives Send from a channel, so that Send can
// be called concurrently from multiple goroutines without racing on the
// underlying stream.
type duplexStream[T ClientStream[Req, Res], Req, Res any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream T
	ch     chan Req
	done   chan struct{}
	stop   chan struct{}

	mu   sync.Mutex
	err  error
	subs []chan<- Res
}

func newDuplexStream[T ClientStream[Req, Res], Req, Res any](
	ctx context.Context,
	factory Factory[T, Req, Res],
	opts ...grpc.CallOption,
) (*duplexStream[T, Req, Res], error) {
	ctx, cancel := context.WithCancel(ctx)

	var success bool
	defer func() {
		if !success {
			cancel()
		}
	}()

	stream, err := factory(ctx, opts...)
	if err != nil {
		return nil, err
	}

	x := duplexStream[T, Req, Res]{
		ctx:    ctx,
		cancel: cancel,
		stream: stream,
		ch:     make(chan Req),
		done:   make(chan struct{}),
		stop:   make(chan struct{}, 1),
	}

	go x.run()

	success = true

	return &x, nil
}

func (x *duplexStream[T, Req, Res]) run() {
	defer close(x.done)
	defer x.cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			res, err := x.stream.Recv()
			if err != nil {
				// triggered by x.cancel, x.stream.CloseSend, or a stream/connection error
				x.fatalErr(err)
				return
			}
			x.publish(res)
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-x.ctx.Done():
				return

			case <-x.stop:
				if err := x.stream.CloseSend(); err != nil {
					x.fatalErr(err)
				}
				return

			case req := <-x.ch:
				if err := x.stream.Send(req); err != nil {
					x.fatalErr(err)
					return
				}
			}
		}
	}()

	wg.Wait()
}

func (x *duplexStream[T, Req, Res]) fatalErr(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err != nil {
		return
	}
	x.cancel()
	if err != nil {
		x.err = err
	} else {
		x.err = x.ctx.Err()
	}
}

// Done returns a channel that's closed once both the receive and send loops
// have exited.
func (x *duplexStream[T, Req, Res]) Done() <-chan struct{} {
	return x.done
}

// Err returns the error that ended the stream, or nil if it ended cleanly
// (io.EOF from Recv is reported as a clean end, not an error).
func (x *duplexStream[T, Req, Res]) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err == io.EOF {
		return nil
	}
	return x.err
}

// Shutdown asks the stream to half-close (CloseSend) and waits for it to
// finish, up to ctx's deadline.
func (x *duplexStream[T, Req, Res]) Shutdown(ctx context.Context) error {
	select {
	case x.stop <- struct{}{}:
	default:
	}

	select {
	case <-ctx.Done():
		x.cancel()
		<-x.done
	case <-x.done:
	}

	return x.Err()
}

// Close cancels the stream immediately and waits for it to finish.
func (x *duplexStream[T, Req, Res]) Close() error {
	x.cancel()
	<-x.done
	return x.Err()
}

// Send delivers req to the stream's send loop, blocking until it's
// accepted, ctx is done, or the stream itself has ended.
func (x *duplexStream[T, Req, Res]) Send(ctx context.Context, req Req) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-x.ctx.Done():
		return net.ErrClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()

	case <-x.ctx.Done():
		return net.ErrClosed

	case x.ch <- req:
		return nil
	}
}

// Subscribe registers target to receive every subsequent response published
// by the stream's receive loop. The returned cancel func must be called to
// unregister target once the caller is no longer reading from it.
//
// WARNING: publish sends to target synchronously; a subscriber that doesn't
// receive promptly stalls delivery to every other subscriber.
func (x *duplexStream[T, Req, Res]) Subscribe(target chan<- Res) context.CancelFunc {
	x.mu.Lock()
	x.subs = append(x.subs, target)
	x.mu.Unlock()

	return func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		for i, s := range x.subs {
			if s == target {
				x.subs = append(x.subs[:i], x.subs[i+1:]...)
				return
			}
		}
	}
}

func (x *duplexStream[T, Req, Res]) publish(value Res) {
	x.mu.Lock()
	subs := make([]chan<- Res, len(x.subs))
	copy(subs, x.subs)
	x.mu.Unlock()

	for _, s := range subs {
		select {
		case s <- value:
		case <-x.ctx.Done():
			return
		}
	}
}
