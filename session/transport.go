package session

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/icon-robotics/iconclient/condition"
)

// WireStatus is the status every response oneof below carries in place of a
// thrown error, so that a Session can decide whether a failure ends the
// session (Aborted) or simply fails the one call (anything else) before
// converting it to a Go error.
type WireStatus struct {
	Code    codes.Code
	Message string
}

// Ok reports whether s represents success.
func (s WireStatus) Ok() bool { return s.Code == codes.OK }

// WireReaction is the wire form of a reaction, attached either to an action
// or sent as part of a free-standing-reactions request.
type WireReaction struct {
	ReactionId          ReactionId
	Condition           condition.Condition
	RealtimeActionId    ActionInstanceId
	HasRealtimeAction   bool
	ParallelActionId    ActionInstanceId
	HasParallelAction   bool
	HasWatcher          bool
	FireOnce            bool
}

// WireAction is the wire form of an action instance to be created.
type WireAction struct {
	ActionTypeName string
	ActionId       ActionInstanceId
	SlotPartMap    SlotPartMap
	HasSlotMap     bool
	SinglePart     string
	HasSinglePart  bool
	FixedParams    *anypb.Any
	Reactions      []WireReaction
}

// OpenSessionRequest is the oneof request sent on a session's action
// stream. Exactly one field is set per message, mirroring the original
// protocol's request oneof.
type OpenSessionRequest struct {
	InitialSessionData         *InitialSessionDataRequest
	AddActions                 *AddActionsRequest
	AddFreestandingReactions   *AddFreestandingReactionsRequest
	RemoveActions              *RemoveActionsRequest
	ClearAllActionsAndReactions bool
	StartActions               *StartActionsRequest
	StopAllActions              bool
	EndSession                   bool
}

// OpenSessionResponse is the oneof response received on a session's action
// stream.
type OpenSessionResponse struct {
	InitialSessionData *InitialSessionDataResponse
	Status             WireStatus
}

// InitialSessionDataRequest requests that the server open a session scoped
// to parts.
type InitialSessionDataRequest struct {
	Parts []string
}

// InitialSessionDataResponse carries the session id assigned by the server.
type InitialSessionDataResponse struct {
	SessionId SessionId
}

// AddActionsRequest asks the server to instantiate the given actions.
type AddActionsRequest struct {
	Actions []WireAction
}

// AddFreestandingReactionsRequest asks the server to register reactions not
// attached to any action.
type AddFreestandingReactionsRequest struct {
	Reactions []WireReaction
}

// RemoveActionsRequest asks the server to remove the given actions, and any
// reactions that reference them.
type RemoveActionsRequest struct {
	ActionIds []ActionInstanceId
}

// StartActionsRequest asks the server to start the given actions.
type StartActionsRequest struct {
	ActionIds          []ActionInstanceId
	StopActiveActions bool
}

// WatchReactionsRequest has no fields; opening the watcher stream is
// sufficient to start receiving WatchReactionsResponse messages.
type WatchReactionsRequest struct{}

// WatchReactionsResponse reports that a reaction fired.
type WatchReactionsResponse struct {
	ReactionId ReactionId
}

// GetLatestOutputRequest asks for the most recent streaming output published
// by action id.
type GetLatestOutputRequest struct {
	ActionId ActionInstanceId
}

// GetLatestOutputResponse carries the opaque output payload published by an
// action's StreamWriter counterpart on the server.
type GetLatestOutputResponse struct {
	Status  WireStatus
	Payload *anypb.Any
}

// GetPlannedTrajectoryRequest asks for the planned joint trajectory
// associated with action id, if it has one.
type GetPlannedTrajectoryRequest struct {
	ActionId ActionInstanceId
}

// JointWaypoint is one position/velocity/acceleration sample of a planned
// joint trajectory.
type JointWaypoint struct {
	TimeFromStart time.Duration
	Position      []float64
	Velocity      []float64
	Acceleration  []float64
}

// GetPlannedTrajectoryResponse carries the planned trajectory for an action,
// if the server has computed one.
type GetPlannedTrajectoryResponse struct {
	Status    WireStatus
	Waypoints []JointWaypoint
}

// StreamInputRequest carries one streamed input value for an action's named
// input, packed as an opaque payload (this client's StreamWriter is
// responsible for packing a proto.Message into Payload before sending).
type StreamInputRequest struct {
	ActionId  ActionInstanceId
	InputName string
	Payload   *anypb.Any
}

// StreamInputResponse acknowledges a StreamInputRequest, or reports why it
// was rejected.
type StreamInputResponse struct {
	Status WireStatus
}

// ActionServiceClient models the RPC surface a Session needs from a
// generated ICON API client: three streams (action command stream, reaction
// watcher stream, streamed action input) plus two unary-shaped calls. A real client
// binds this to generated gRPC stubs; tests bind it to an in-process fake.
type ActionServiceClient interface {
	OpenSession(ctx context.Context, opts ...grpc.CallOption) (ClientStream[OpenSessionRequest, OpenSessionResponse], error)
	WatchReactions(ctx context.Context, opts ...grpc.CallOption) (ClientStream[WatchReactionsRequest, WatchReactionsResponse], error)
	OpenStreamInput(ctx context.Context, opts ...grpc.CallOption) (ClientStream[StreamInputRequest, StreamInputResponse], error)

	GetLatestOutput(ctx context.Context, req GetLatestOutputRequest) (GetLatestOutputResponse, error)
	GetPlannedTrajectory(ctx context.Context, req GetPlannedTrajectoryRequest) (GetPlannedTrajectoryResponse, error)
}
