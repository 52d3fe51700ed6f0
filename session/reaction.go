package session

import (
	"fmt"
	"runtime"

	"github.com/icon-robotics/iconclient/condition"
)

// ReactionDescriptor describes a reaction: a condition evaluated in
// real-time on the server, plus the events to trigger when it fires. A
// reaction is triggered when its condition is true at the moment the
// reaction becomes active, or on a rising edge while already active.
//
// A reaction is active while its associated action is active, or for the
// lifetime of the session if it was added as a free-standing reaction.
type ReactionDescriptor struct {
	condition          condition.Condition
	handle             ReactionHandle
	hasHandle          bool
	handleLocation     string
	realtimeActionId   ActionInstanceId
	hasRealtimeAction  bool
	parallelActionId   ActionInstanceId
	hasParallelAction  bool
	onCondition        func()
	fireOnce           bool
}

// NewReactionDescriptor builds a ReactionDescriptor evaluating cond.
func NewReactionDescriptor(cond condition.Condition) ReactionDescriptor {
	return ReactionDescriptor{condition: cond}
}

// WithHandle associates handle with the reaction, so it can later be
// referenced (e.g. by [Session.RunWatcherLoopUntilReaction]). handle must be
// unique within the surrounding Session; a duplicate is reported with the
// source location of both the original and offending WithHandle call, this
// call's location captured here via runtime.Caller.
func (r ReactionDescriptor) WithHandle(handle ReactionHandle) ReactionDescriptor {
	r.handle = handle
	r.hasHandle = true
	r.handleLocation = callerLocation(1)
	return r
}

// callerLocation renders the file:line of the caller skip frames above this
// function, or "unknown location" if it can't be determined.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown location"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// WithRealtimeActionOnCondition switches to actionID in the real-time
// context once the condition fires. Only one action may be switched to;
// a later call to WithRealtimeActionOnCondition or
// WithParallelRealtimeActionOnCondition replaces this one.
func (r ReactionDescriptor) WithRealtimeActionOnCondition(actionID ActionInstanceId) ReactionDescriptor {
	r.realtimeActionId = actionID
	r.hasRealtimeAction = true
	r.hasParallelAction = false
	return r
}

// WithParallelRealtimeActionOnCondition starts actionID in parallel in the
// real-time context once the condition fires, without preempting the
// action this reaction is bound to (their part sets must not overlap).
// Only one action may be started this way; a later call to this method or
// WithRealtimeActionOnCondition replaces it.
func (r ReactionDescriptor) WithParallelRealtimeActionOnCondition(actionID ActionInstanceId) ReactionDescriptor {
	r.parallelActionId = actionID
	r.hasParallelAction = true
	r.hasRealtimeAction = false
	return r
}

// WithWatcherOnCondition registers a callback invoked on the calling thread
// of [Session.RunWatcherLoop] each time the condition fires. Only one
// callback may be registered; a later call replaces it.
func (r ReactionDescriptor) WithWatcherOnCondition(onCondition func()) ReactionDescriptor {
	r.onCondition = onCondition
	return r
}

// FireOnce configures repeated-triggering behavior. When enable is true, the
// reaction triggers at most once while its associated action remains
// active (or, for a free-standing reaction, at most once ever); it can
// trigger again only if the action runs again. When enable is false (the
// default), the reaction triggers again on every subsequent rising edge.
func (r ReactionDescriptor) FireOnce(enable bool) ReactionDescriptor {
	r.fireOnce = enable
	return r
}
