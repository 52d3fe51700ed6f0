// Package session implements the ICON duplex session runtime: adding and
// removing actions and reactions on a live connection to the server, running
// the watcher loop that dispatches reaction callbacks, and streaming input
// values into running actions.
package session

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/icon-robotics/iconclient/iconerr"
	"github.com/icon-robotics/iconclient/iconlog"
)

// Option configures a Session at Start time.
type Option func(*config)

type config struct {
	logger               iconlog.Logger
	watcherQueueCapacity int
}

func defaultConfig() config {
	return config{
		logger:               iconlog.Nop,
		watcherQueueCapacity: 64,
	}
}

// WithLogger configures the logger a Session uses to report abnormal
// session endings and watcher-loop errors.
func WithLogger(logger iconlog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithWatcherQueueCapacity overrides the default capacity of the buffered
// queue between the watcher stream's background reader and
// [Session.RunWatcherLoop]. The default is 64.
func WithWatcherQueueCapacity(capacity int) Option {
	return func(c *config) { c.watcherQueueCapacity = capacity }
}

type reactionEntry struct {
	callback func()
	fireOnce bool
}

type reactionSave struct {
	id   ReactionId
	desc ReactionDescriptor
}

// reactionHandleEntry records which reaction a handle resolves to, and
// where the handle was assigned, so a later duplicate-handle error can cite
// both the original and offending call sites.
type reactionHandleEntry struct {
	id       ReactionId
	location string
}

type watcherEvent struct {
	response WatchReactionsResponse
	err      error
}

// Session scopes control of a set of parts to a single logical session: it
// lets a caller add actions and reactions, start and stop actions, and
// dispatch reaction callbacks via a watcher loop. A Session must eventually
// be ended with [Session.End].
type Session struct {
	client ActionServiceClient

	actionStream  *duplexStream[ClientStream[OpenSessionRequest, OpenSessionResponse], OpenSessionRequest, OpenSessionResponse]
	watcherStream *duplexStream[ClientStream[WatchReactionsRequest, WatchReactionsResponse], WatchReactionsRequest, WatchReactionsResponse]

	logger iconlog.Logger

	sessionId SessionId

	// actionMu serializes calls that write to and then await a correlated
	// response on actionStream; the server's per-session action protocol is
	// a strict request/response turn, so concurrent AddAction-style calls
	// must not interleave their writes.
	actionMu sync.Mutex

	// mu guards session-lifecycle and reaction-bookkeeping state.
	mu                 sync.Mutex
	ended              bool
	reactionCallbacks  map[ReactionId]*reactionEntry
	reactionHandleToId map[ReactionHandle]reactionHandleEntry
	reactionIdSeq      reactionIdSequence

	endedCh      chan struct{}
	watcherQueue chan watcherEvent
	quitWatcher  chan struct{}
}

// Start opens a session scoped to parts: it establishes the action command
// stream and the reaction watcher stream, and blocks until the server
// acknowledges the session with a session id.
func Start(ctx context.Context, client ActionServiceClient, parts []string, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	actionStream, err := newDuplexStream[ClientStream[OpenSessionRequest, OpenSessionResponse], OpenSessionRequest, OpenSessionResponse](ctx, client.OpenSession)
	if err != nil {
		return nil, iconerr.Aborted("open action stream: %v", err)
	}

	watcherStream, err := newDuplexStream[ClientStream[WatchReactionsRequest, WatchReactionsResponse], WatchReactionsRequest, WatchReactionsResponse](ctx, client.WatchReactions)
	if err != nil {
		_ = actionStream.Close()
		return nil, iconerr.Aborted("open watcher stream: %v", err)
	}

	s := &Session{
		client:             client,
		actionStream:       actionStream,
		watcherStream:      watcherStream,
		logger:             cfg.logger,
		reactionCallbacks:  make(map[ReactionId]*reactionEntry),
		reactionHandleToId: make(map[ReactionHandle]reactionHandleEntry),
		endedCh:            make(chan struct{}),
		watcherQueue:       make(chan watcherEvent, cfg.watcherQueueCapacity),
		quitWatcher:        make(chan struct{}, 1),
	}

	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{InitialSessionData: &InitialSessionDataRequest{Parts: append([]string(nil), parts...)}})
	if err != nil {
		_ = actionStream.Close()
		_ = watcherStream.Close()
		return nil, err
	}
	if resp.InitialSessionData == nil {
		_ = actionStream.Close()
		_ = watcherStream.Close()
		return nil, iconerr.Internal("server did not acknowledge session with initial session data")
	}
	s.sessionId = resp.InitialSessionData.SessionId

	go s.watchReactionsThreadBody()

	return s, nil
}

// Id returns the session id assigned by the server.
func (s *Session) Id() SessionId { return s.sessionId }

func (s *Session) checkNotEnded() error {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return iconerr.FailedPrecondition("session %d has ended", s.sessionId)
	}
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()
	close(s.endedCh)
}

// sendAndAwaitAction writes req to the action stream and waits for the next
// response published on it. It assumes the caller holds actionMu, so that
// the write and its correlated read aren't interleaved with another call's.
func (s *Session) sendAndAwaitAction(ctx context.Context, req OpenSessionRequest) (OpenSessionResponse, error) {
	respCh := make(chan OpenSessionResponse, 1)
	cancel := s.actionStream.Subscribe(respCh)
	defer cancel()

	if err := s.actionStream.Send(ctx, req); err != nil {
		return OpenSessionResponse{}, iconerr.Aborted("send action request: %v", err)
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		return OpenSessionResponse{}, ctx.Err()
	case <-s.actionStream.Done():
		if err := s.actionStream.Err(); err != nil {
			return OpenSessionResponse{}, iconerr.Aborted("action stream closed: %v", err)
		}
		return OpenSessionResponse{}, iconerr.Aborted("action stream closed")
	}
}

// endAndLogOnAbort converts status to an error. A kAborted status ends the
// session and is logged; any other non-OK status is returned without ending
// the session.
func (s *Session) endAndLogOnAbort(status WireStatus) error {
	if status.Ok() {
		return nil
	}
	if status.Code == codes.Aborted {
		s.end()
		s.logger.Err().Int("session_id", int(s.sessionId)).Str("message", status.Message).Log("session ended")
		return iconerr.Aborted("session %d ended: %s", s.sessionId, status.Message)
	}
	return iconerr.New(status.Code, "%s", status.Message)
}

func wireReactionFromDescriptor(id ReactionId, rd ReactionDescriptor) WireReaction {
	return WireReaction{
		ReactionId:        id,
		Condition:         rd.condition,
		RealtimeActionId:  rd.realtimeActionId,
		HasRealtimeAction: rd.hasRealtimeAction,
		ParallelActionId:  rd.parallelActionId,
		HasParallelAction: rd.hasParallelAction,
		HasWatcher:        rd.onCondition != nil,
		FireOnce:          rd.fireOnce,
	}
}

// checkReactionHandlesUniqueLocked returns AlreadyExists if descs contains
// any ReactionHandle that appears more than once, either across descs or
// against handles already registered in this session, citing the source
// location of both the original and the offending WithHandle call. Caller
// must hold mu.
func (s *Session) checkReactionHandlesUniqueLocked(descs []ReactionDescriptor) error {
	seen := make(map[ReactionHandle]ReactionDescriptor, len(descs))
	for _, d := range descs {
		if !d.hasHandle {
			continue
		}
		if first, ok := seen[d.handle]; ok {
			return iconerr.AlreadyExists("reaction handle %d used more than once in this call: first assigned at %s, again at %s", d.handle, first.handleLocation, d.handleLocation)
		}
		seen[d.handle] = d
		if existing, ok := s.reactionHandleToId[d.handle]; ok {
			return iconerr.AlreadyExists("reaction handle %d already registered in this session: originally assigned at %s, again at %s", d.handle, existing.location, d.handleLocation)
		}
	}
	return nil
}

// saveReactionDataLocked records callbacks and handle mappings for newly
// assigned reactions. Caller must hold mu.
func (s *Session) saveReactionDataLocked(saved []reactionSave) {
	for _, sv := range saved {
		if sv.desc.onCondition != nil {
			s.reactionCallbacks[sv.id] = &reactionEntry{callback: sv.desc.onCondition, fireOnce: sv.desc.fireOnce}
		}
		if sv.desc.hasHandle {
			s.reactionHandleToId[sv.desc.handle] = reactionHandleEntry{id: sv.id, location: sv.desc.handleLocation}
		}
	}
}

func (s *Session) buildWireAction(d ActionDescriptor) (WireAction, []reactionSave) {
	wa := WireAction{
		ActionTypeName: d.actionTypeName,
		ActionId:       d.actionId,
		SlotPartMap:    d.slotPartMap,
		HasSlotMap:     d.hasSlotMap,
		SinglePart:     d.singlePart.PartName,
		HasSinglePart:  d.hasSinglePart,
		FixedParams:    d.fixedParams,
	}
	wa.Reactions = make([]WireReaction, len(d.reactions))
	saved := make([]reactionSave, len(d.reactions))
	for i, rd := range d.reactions {
		id := s.reactionIdSeq.Next()
		wa.Reactions[i] = wireReactionFromDescriptor(id, rd)
		saved[i] = reactionSave{id: id, desc: rd}
	}
	return wa, saved
}

// AddActions adds the actions described by descriptors to the session.
func (s *Session) AddActions(ctx context.Context, descriptors []ActionDescriptor) ([]Action, error) {
	if err := s.checkNotEnded(); err != nil {
		return nil, err
	}

	var allReactions []ReactionDescriptor
	for _, d := range descriptors {
		allReactions = append(allReactions, d.reactions...)
	}

	s.mu.Lock()
	if err := s.checkReactionHandlesUniqueLocked(allReactions); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	wireActions := make([]WireAction, len(descriptors))
	var allSaved []reactionSave
	for i, d := range descriptors {
		wa, saved := s.buildWireAction(d)
		wireActions[i] = wa
		allSaved = append(allSaved, saved...)
	}
	s.saveReactionDataLocked(allSaved)
	s.mu.Unlock()

	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{AddActions: &AddActionsRequest{Actions: wireActions}})
	s.actionMu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := s.endAndLogOnAbort(resp.Status); err != nil {
		return nil, err
	}

	actions := make([]Action, len(descriptors))
	for i, d := range descriptors {
		actions[i] = Action{id: d.actionId}
	}
	return actions, nil
}

// AddAction adds the single action described by descriptor to the session.
func (s *Session) AddAction(ctx context.Context, descriptor ActionDescriptor) (Action, error) {
	actions, err := s.AddActions(ctx, []ActionDescriptor{descriptor})
	if err != nil {
		return Action{}, err
	}
	return actions[0], nil
}

// AddFreestandingReactions adds reactions that aren't attached to any
// action; they're active for the lifetime of the session.
func (s *Session) AddFreestandingReactions(ctx context.Context, descriptors []ReactionDescriptor) error {
	if err := s.checkNotEnded(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.checkReactionHandlesUniqueLocked(descriptors); err != nil {
		s.mu.Unlock()
		return err
	}
	wireReactions := make([]WireReaction, len(descriptors))
	saved := make([]reactionSave, len(descriptors))
	for i, rd := range descriptors {
		id := s.reactionIdSeq.Next()
		wireReactions[i] = wireReactionFromDescriptor(id, rd)
		saved[i] = reactionSave{id: id, desc: rd}
	}
	s.saveReactionDataLocked(saved)
	s.mu.Unlock()

	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{AddFreestandingReactions: &AddFreestandingReactionsRequest{Reactions: wireReactions}})
	s.actionMu.Unlock()
	if err != nil {
		return err
	}
	return s.endAndLogOnAbort(resp.Status)
}

// AddFreestandingReaction adds a single free-standing reaction.
func (s *Session) AddFreestandingReaction(ctx context.Context, descriptor ReactionDescriptor) error {
	return s.AddFreestandingReactions(ctx, []ReactionDescriptor{descriptor})
}

// RemoveActions removes the actions identified by actionIds, along with any
// reactions that originate from or switch to them. Removed ids are never
// recycled.
func (s *Session) RemoveActions(ctx context.Context, actionIds []ActionInstanceId) error {
	if err := s.checkNotEnded(); err != nil {
		return err
	}
	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{RemoveActions: &RemoveActionsRequest{ActionIds: actionIds}})
	s.actionMu.Unlock()
	if err != nil {
		return err
	}
	return s.endAndLogOnAbort(resp.Status)
}

// RemoveAction removes a single action.
func (s *Session) RemoveAction(ctx context.Context, actionId ActionInstanceId) error {
	return s.RemoveActions(ctx, []ActionInstanceId{actionId})
}

// ClearAllActionsAndReactions removes every action and reaction from the
// session; all parts fall back to their default action. This invalidates
// every Action and ReactionHandle obtained from this session so far.
func (s *Session) ClearAllActionsAndReactions(ctx context.Context) error {
	if err := s.checkNotEnded(); err != nil {
		return err
	}
	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{ClearAllActionsAndReactions: true})
	s.actionMu.Unlock()
	if err != nil {
		return err
	}
	if err := s.endAndLogOnAbort(resp.Status); err != nil {
		return err
	}
	s.mu.Lock()
	s.reactionCallbacks = make(map[ReactionId]*reactionEntry)
	s.reactionHandleToId = make(map[ReactionHandle]reactionHandleEntry)
	s.mu.Unlock()
	return nil
}

// StartActions starts actions on the server. All actions must have
// non-overlapping part sets. If stopActiveActions is true, every currently
// active action is stopped first and unused parts fall back to their
// default action; if false, actions start in parallel with whatever's
// already active, preempting only the actions whose part sets overlap.
func (s *Session) StartActions(ctx context.Context, actions []Action, stopActiveActions bool) error {
	if err := s.checkNotEnded(); err != nil {
		return err
	}
	ids := make([]ActionInstanceId, len(actions))
	for i, a := range actions {
		ids[i] = a.id
	}
	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{StartActions: &StartActionsRequest{ActionIds: ids, StopActiveActions: stopActiveActions}})
	s.actionMu.Unlock()
	if err != nil {
		return err
	}
	return s.endAndLogOnAbort(resp.Status)
}

// StartAction starts a single action.
//
// Deprecated: use StartActions instead.
func (s *Session) StartAction(ctx context.Context, action Action, stopActiveActions bool) error {
	return s.StartActions(ctx, []Action{action}, stopActiveActions)
}

// StopAllActions stops every active action; all parts fall back to their
// default action.
func (s *Session) StopAllActions(ctx context.Context) error {
	if err := s.checkNotEnded(); err != nil {
		return err
	}
	s.actionMu.Lock()
	resp, err := s.sendAndAwaitAction(ctx, OpenSessionRequest{StopAllActions: true})
	s.actionMu.Unlock()
	if err != nil {
		return err
	}
	return s.endAndLogOnAbort(resp.Status)
}

// End ends the session. Returns a FailedPrecondition error if the session
// has already ended.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return iconerr.FailedPrecondition("session %d has already ended", s.sessionId)
	}
	s.mu.Unlock()

	s.actionMu.Lock()
	resp, sendErr := s.sendAndAwaitAction(ctx, OpenSessionRequest{EndSession: true})
	s.actionMu.Unlock()

	s.end()
	_ = s.actionStream.Close()
	_ = s.watcherStream.Close()

	if sendErr != nil {
		// the stream is already gone by the time End is acknowledged in most
		// cases; that's a successful end, not a failure to report.
		return nil
	}
	if !resp.Status.Ok() && resp.Status.Code != codes.Aborted {
		return iconerr.New(resp.Status.Code, "%s", resp.Status.Message)
	}
	return nil
}

func errFromWatcherStream(streamErr error) error {
	if streamErr == nil {
		return iconerr.Aborted("watcher stream closed")
	}
	return iconerr.Aborted("watcher stream closed: %v", streamErr)
}

// watchReactionsThreadBody reads from the watcher stream in the background
// and queues events for RunWatcherLoop. Only this goroutine ever calls
// watcherStream.Subscribe's delivered channel; it owns that subscription for
// the lifetime of the session.
func (s *Session) watchReactionsThreadBody() {
	ch := make(chan WatchReactionsResponse, 1)
	cancel := s.watcherStream.Subscribe(ch)
	defer cancel()

	for {
		select {
		case resp := <-ch:
			select {
			case s.watcherQueue <- watcherEvent{response: resp}:
			case <-s.watcherStream.Done():
			}

		case <-s.watcherStream.Done():
			err := errFromWatcherStream(s.watcherStream.Err())
			select {
			case s.watcherQueue <- watcherEvent{err: err}:
			default:
			}
			return
		}
	}
}

// triggerReactionCallbacks invokes the callback registered for resp's
// reaction, if any, removing it first when that reaction is fire-once.
func (s *Session) triggerReactionCallbacks(resp WatchReactionsResponse) {
	s.mu.Lock()
	entry, ok := s.reactionCallbacks[resp.ReactionId]
	if ok && entry.fireOnce {
		delete(s.reactionCallbacks, resp.ReactionId)
	}
	s.mu.Unlock()

	if ok && entry.callback != nil {
		entry.callback()
	}
}

func (s *Session) runWatcherLoop(deadline time.Time, untilReaction ReactionId, hasUntil bool) error {
	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		// Drain any already-queued events first: a deadline that has already
		// elapsed by the time this iteration runs must not starve events
		// that were queued before it, so this never reaches the case below
		// while watcherQueue is non-empty.
		select {
		case ev := <-s.watcherQueue:
			if done, err := s.dispatchWatcherEvent(ev, untilReaction, hasUntil); done {
				return err
			}
			continue
		default:
		}

		select {
		case ev := <-s.watcherQueue:
			if done, err := s.dispatchWatcherEvent(ev, untilReaction, hasUntil); done {
				return err
			}

		case <-s.quitWatcher:
			return nil

		case <-s.endedCh:
			return iconerr.Aborted("session %d ended", s.sessionId)

		case <-timeoutCh:
			return iconerr.DeadlineExceeded("watcher loop deadline exceeded")
		}
	}
}

// dispatchWatcherEvent handles one queued watcher event, reporting whether
// the watcher loop should return (and with what error, if any).
func (s *Session) dispatchWatcherEvent(ev watcherEvent, untilReaction ReactionId, hasUntil bool) (done bool, err error) {
	if ev.err != nil {
		return true, ev.err
	}
	s.triggerReactionCallbacks(ev.response)
	if hasUntil && ev.response.ReactionId == untilReaction {
		return true, nil
	}
	return false, nil
}

// RunWatcherLoop dispatches reaction callbacks on the calling goroutine
// until QuitWatcherLoop is called, the session ends, or deadline passes (the
// zero Time means no deadline).
func (s *Session) RunWatcherLoop(deadline time.Time) error {
	return s.runWatcherLoop(deadline, 0, false)
}

// RunWatcherLoopUntilReaction is like RunWatcherLoop, but also returns once
// the reaction registered under handle has fired.
func (s *Session) RunWatcherLoopUntilReaction(handle ReactionHandle, deadline time.Time) error {
	s.mu.Lock()
	entry, ok := s.reactionHandleToId[handle]
	s.mu.Unlock()
	if !ok {
		return iconerr.NotFound("no reaction registered for handle %d", handle)
	}
	return s.runWatcherLoop(deadline, entry.id, true)
}

// QuitWatcherLoop asks a running RunWatcherLoop/RunWatcherLoopUntilReaction
// call to return after it finishes processing the event it's currently on,
// if any. Safe to call from any goroutine, including from inside a reaction
// callback.
func (s *Session) QuitWatcherLoop() {
	select {
	case s.quitWatcher <- struct{}{}:
	default:
	}
}

// GetLatestOutput returns the most recently published streaming output of
// the action identified by id.
func (s *Session) GetLatestOutput(ctx context.Context, id ActionInstanceId) (*anypb.Any, error) {
	if err := s.checkNotEnded(); err != nil {
		return nil, err
	}
	resp, err := s.client.GetLatestOutput(ctx, GetLatestOutputRequest{ActionId: id})
	if err != nil {
		return nil, iconerr.Aborted("get latest output: %v", err)
	}
	if err := s.endAndLogOnAbort(resp.Status); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// GetPlannedTrajectory returns the planned joint trajectory for the action
// identified by id, if the server has computed one.
func (s *Session) GetPlannedTrajectory(ctx context.Context, id ActionInstanceId) ([]JointWaypoint, error) {
	if err := s.checkNotEnded(); err != nil {
		return nil, err
	}
	resp, err := s.client.GetPlannedTrajectory(ctx, GetPlannedTrajectoryRequest{ActionId: id})
	if err != nil {
		return nil, iconerr.Aborted("get planned trajectory: %v", err)
	}
	if err := s.endAndLogOnAbort(resp.Status); err != nil {
		return nil, err
	}
	return resp.Waypoints, nil
}

// InputStreamWriter streams values of type T into a single named input of a
// running action, over a dedicated stream opened just for it.
type InputStreamWriter[T proto.Message] struct {
	session   *Session
	actionId  ActionInstanceId
	inputName string
	stream    ClientStream[StreamInputRequest, StreamInputResponse]
}

// StreamWriter opens an InputStreamWriter for the given input of action.
func StreamWriter[T proto.Message](ctx context.Context, s *Session, action Action, inputName string) (*InputStreamWriter[T], error) {
	if err := s.checkNotEnded(); err != nil {
		return nil, err
	}
	stream, err := s.client.OpenStreamInput(ctx)
	if err != nil {
		return nil, iconerr.Aborted("open stream input: %v", err)
	}
	return &InputStreamWriter[T]{session: s, actionId: action.id, inputName: inputName, stream: stream}, nil
}

// Write sends value as the next streamed input value.
func (w *InputStreamWriter[T]) Write(value T) error {
	payload, err := anypb.New(value)
	if err != nil {
		return iconerr.InvalidArgument("pack stream input: %v", err)
	}
	if err := w.stream.Send(StreamInputRequest{ActionId: w.actionId, InputName: w.inputName, Payload: payload}); err != nil {
		return iconerr.Aborted("write stream input: %v", err)
	}
	resp, err := w.stream.Recv()
	if err != nil {
		return iconerr.Aborted("stream input ack: %v", err)
	}
	return w.session.endAndLogOnAbort(resp.Status)
}

// Close half-closes the input stream.
func (w *InputStreamWriter[T]) Close() error {
	return w.stream.CloseSend()
}
