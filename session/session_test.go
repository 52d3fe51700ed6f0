package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"github.com/icon-robotics/iconclient/condition"
	"github.com/icon-robotics/iconclient/iconerr"
)

// fakeStream is a minimal grpc.ClientStream implementation backing the fake
// transport below; every unused method returns a zero value, as a hand-rolled
// generated client stub effectively does for these calls.
type fakeStream[Req, Res any] struct {
	ctx  context.Context
	send func(Req) error
	recv func() (Res, error)
	closeSend func() error
}

func (f *fakeStream[Req, Res]) Send(r Req) error   { return f.send(r) }
func (f *fakeStream[Req, Res]) Recv() (Res, error) { return f.recv() }
func (f *fakeStream[Req, Res]) Header() (metadata.MD, error) { return nil, nil }
func (f *fakeStream[Req, Res]) Trailer() metadata.MD         { return nil }
func (f *fakeStream[Req, Res]) CloseSend() error {
	if f.closeSend != nil {
		return f.closeSend()
	}
	return nil
}
func (f *fakeStream[Req, Res]) Context() context.Context  { return f.ctx }
func (f *fakeStream[Req, Res]) SendMsg(m any) error        { return nil }
func (f *fakeStream[Req, Res]) RecvMsg(m any) error        { return nil }

// fakeClient is an in-process ActionServiceClient: the action stream is
// served by a goroutine that replies to every request with exactly one
// response, computed by respond; the watcher stream delivers whatever is
// pushed onto watcherOut.
type fakeClient struct {
	sessionId SessionId
	respond   func(OpenSessionRequest) OpenSessionResponse

	watcherOut chan WatchReactionsResponse
}

func newFakeClient(sessionId SessionId) *fakeClient {
	return &fakeClient{sessionId: sessionId, watcherOut: make(chan WatchReactionsResponse, 16)}
}

func (c *fakeClient) OpenSession(ctx context.Context, opts ...grpc.CallOption) (ClientStream[OpenSessionRequest, OpenSessionResponse], error) {
	reqCh := make(chan OpenSessionRequest, 1)
	respCh := make(chan OpenSessionResponse, 1)

	go func() {
		for {
			select {
			case req, ok := <-reqCh:
				if !ok {
					close(respCh)
					return
				}
				respCh <- c.handle(req)
			case <-ctx.Done():
				return
			}
		}
	}()

	return &fakeStream[OpenSessionRequest, OpenSessionResponse]{
		ctx:  ctx,
		send: func(r OpenSessionRequest) error { reqCh <- r; return nil },
		recv: func() (OpenSessionResponse, error) {
			select {
			case resp, ok := <-respCh:
				if !ok {
					return OpenSessionResponse{}, io.EOF
				}
				return resp, nil
			case <-ctx.Done():
				return OpenSessionResponse{}, ctx.Err()
			}
		},
		closeSend: func() error { close(reqCh); return nil },
	}, nil
}

func (c *fakeClient) handle(req OpenSessionRequest) OpenSessionResponse {
	if req.InitialSessionData != nil {
		return OpenSessionResponse{InitialSessionData: &InitialSessionDataResponse{SessionId: c.sessionId}}
	}
	if c.respond != nil {
		return c.respond(req)
	}
	return OpenSessionResponse{Status: WireStatus{Code: codes.OK}}
}

func (c *fakeClient) WatchReactions(ctx context.Context, opts ...grpc.CallOption) (ClientStream[WatchReactionsRequest, WatchReactionsResponse], error) {
	return &fakeStream[WatchReactionsRequest, WatchReactionsResponse]{
		ctx:  ctx,
		send: func(WatchReactionsRequest) error { return nil },
		recv: func() (WatchReactionsResponse, error) {
			select {
			case v, ok := <-c.watcherOut:
				if !ok {
					return WatchReactionsResponse{}, io.EOF
				}
				return v, nil
			case <-ctx.Done():
				return WatchReactionsResponse{}, ctx.Err()
			}
		},
	}, nil
}

func (c *fakeClient) OpenStreamInput(ctx context.Context, opts ...grpc.CallOption) (ClientStream[StreamInputRequest, StreamInputResponse], error) {
	return nil, nil
}

func (c *fakeClient) GetLatestOutput(ctx context.Context, req GetLatestOutputRequest) (GetLatestOutputResponse, error) {
	return GetLatestOutputResponse{}, nil
}

func (c *fakeClient) GetPlannedTrajectory(ctx context.Context, req GetPlannedTrajectoryRequest) (GetPlannedTrajectoryResponse, error) {
	return GetPlannedTrajectoryResponse{}, nil
}

func mustStart(t *testing.T, client *fakeClient) *Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Start(ctx, client, []string{"arm"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.End(context.Background()) })
	return s
}

func TestStart_assignsSessionId(t *testing.T) {
	client := newFakeClient(42)
	s := mustStart(t, client)
	require.Equal(t, SessionId(42), s.Id())
}

func TestAddAction_returnsActionWithRequestedId(t *testing.T) {
	client := newFakeClient(1)
	s := mustStart(t, client)

	desc := NewActionDescriptor("stop", ActionInstanceId(7), NewSlotPartMap(SlotBinding{Slot: "arm", Part: "arm_0"}))
	action, err := s.AddAction(context.Background(), desc)
	require.NoError(t, err)
	require.Equal(t, ActionInstanceId(7), action.Id())
}

func TestAddActions_rejectsDuplicateReactionHandleInSameCall(t *testing.T) {
	client := newFakeClient(1)
	s := mustStart(t, client)

	cond := condition.IsTrue("@gripper.is_open")
	rd := NewReactionDescriptor(cond).WithHandle(ReactionHandle(1))
	desc1 := NewActionDescriptor("grip", ActionInstanceId(1), NewSlotPartMap(SlotBinding{Slot: "s", Part: "p"})).WithReaction(rd)
	desc2 := NewActionDescriptor("grip", ActionInstanceId(2), NewSlotPartMap(SlotBinding{Slot: "s", Part: "p"})).WithReaction(rd)

	_, err := s.AddActions(context.Background(), []ActionDescriptor{desc1, desc2})
	require.Error(t, err)
}

func TestAddActions_rejectsHandleAlreadyRegistered(t *testing.T) {
	client := newFakeClient(1)
	s := mustStart(t, client)

	cond := condition.IsTrue("@gripper.is_open")
	rd := NewReactionDescriptor(cond).WithHandle(ReactionHandle(5))
	desc := NewActionDescriptor("grip", ActionInstanceId(1), NewSlotPartMap(SlotBinding{Slot: "s", Part: "p"})).WithReaction(rd)

	_, err := s.AddAction(context.Background(), desc)
	require.NoError(t, err)

	_, err = s.AddAction(context.Background(), desc)
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.AlreadyExists))
	require.Contains(t, err.Error(), "session_test.go")
}

func TestRunWatcherLoop_dispatchesCallbackAndFiresOnce(t *testing.T) {
	client := newFakeClient(1)
	s := mustStart(t, client)

	var calls atomic.Int32
	cond := condition.IsTrue("@safety.enable_button.pressed")
	rd := NewReactionDescriptor(cond).
		WithHandle(ReactionHandle(1)).
		WithWatcherOnCondition(func() { calls.Add(1) }).
		FireOnce(true)

	require.NoError(t, s.AddFreestandingReaction(context.Background(), rd))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RunWatcherLoop(time.Now().Add(2 * time.Second))
	}()

	s.mu.Lock()
	entry := s.reactionHandleToId[ReactionHandle(1)]
	s.mu.Unlock()

	client.watcherOut <- WatchReactionsResponse{ReactionId: entry.id}
	client.watcherOut <- WatchReactionsResponse{ReactionId: entry.id}
	s.QuitWatcherLoop()
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func TestRunWatcherLoop_returnsDeadlineExceeded(t *testing.T) {
	client := newFakeClient(1)
	s := mustStart(t, client)

	err := s.RunWatcherLoop(time.Now().Add(10 * time.Millisecond))
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.DeadlineExceeded))
}

func TestEnd_thenFurtherCallsFailWithFailedPrecondition(t *testing.T) {
	client := newFakeClient(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Start(ctx, client, []string{"arm"})
	require.NoError(t, err)

	require.NoError(t, s.End(context.Background()))

	_, err = s.AddAction(context.Background(), NewActionDescriptor("stop", ActionInstanceId(1), NewSlotPartMap()))
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.FailedPrecondition))

	err = s.End(context.Background())
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.FailedPrecondition))
}
