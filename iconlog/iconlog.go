// Package iconlog wires this client's structured logging onto
// [github.com/joeycumines/logiface], the facade [Client] and
// [github.com/icon-robotics/iconclient/session.Session] both log through.
// Callers choose a [log/slog] handler as the backend via [New], or no
// logging at all via [Nop]; components internal to this module never import
// a specific backend directly.
package iconlog

import (
	"log/slog"

	"github.com/joeycumines/logiface"
	iconslog "github.com/joeycumines/logiface-slog"
)

// Event is the concrete event type this module's loggers are built over.
type Event = iconslog.Event

// Logger is the type every component in this module logs through.
type Logger = *logiface.Logger[*Event]

// Nop is a disabled logger: every level check short-circuits, so callers
// that never configure a logger pay no logging cost and never panic on a
// nil logger, matching the zero-value-usable pattern [logiface.Logger]
// itself follows.
var Nop Logger = logiface.New[*Event]()

// New builds a Logger that writes through handler (typically built by
// [log/slog.NewTextHandler] or [log/slog.NewJSONHandler]).
func New(handler slog.Handler) Logger {
	return logiface.New[*Event](iconslog.NewLogger(handler))
}
