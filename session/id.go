package session

import "sync/atomic"

// SessionId identifies a session, assigned by the server in the
// initial_session_data response.
type SessionId int64

// ActionInstanceId identifies an action instance, chosen by the caller and
// unique within a session.
type ActionInstanceId int64

// ReactionId identifies a reaction, assigned by the session from a monotonic
// per-session counter.
type ReactionId int64

// ReactionHandle is a user-chosen tag used to attach callbacks to a
// reaction; it must be unique within a session.
type ReactionHandle int64

// reactionIdSequence generates monotonically increasing ReactionId values
// for a single session. The zero value is ready to use and starts at 1, so
// that the zero ReactionId can serve as a "no id assigned" sentinel.
type reactionIdSequence struct {
	next atomic.Int64
}

// Next returns the next ReactionId in the sequence. Safe for concurrent use,
// though it is only ever called from a Session's own mutator calls, which
// are themselves serialized by Session.mu.
func (s *reactionIdSequence) Next() ReactionId {
	return ReactionId(s.next.Add(1))
}
