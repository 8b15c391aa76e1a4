package audit

import (
	"context"

	"github.com/roach88/checkqueue/internal/cerr"
	"github.com/roach88/checkqueue/internal/collab"
)

// LoggingAdapter wraps a collab.Logger so that every Log/ReportError call
// also lands a row in the audit trail, in addition to whatever the
// underlying logger (typically a collab.SlogLogger) does with it. Wiring
// this in front of the worker's logger is how dispatch-level events end
// up in the durable trail without the worker package importing audit
// directly.
type LoggingAdapter struct {
	underlying collab.Logger
	log        *Log
}

// NewLoggingAdapter wraps underlying with an audit trail backed by log. A
// nil underlying is replaced with collab.NopLogger{}.
func NewLoggingAdapter(underlying collab.Logger, log *Log) *LoggingAdapter {
	if underlying == nil {
		underlying = collab.NopLogger{}
	}
	return &LoggingAdapter{underlying: underlying, log: log}
}

// Log forwards message to the underlying logger and records it as an
// audit event: KindCompleted for a successful check dispatch
// (collab.CheckCompletedMessage), KindDispatched for everything else.
// Recording is best-effort: a failure to write is swallowed rather than
// propagated, since the audit trail is diagnostic, not authoritative.
func (a *LoggingAdapter) Log(message string, args ...any) {
	a.underlying.Log(message, args...)
	kind := KindDispatched
	if message == collab.CheckCompletedMessage {
		kind = KindCompleted
	}
	_ = a.log.Record(context.Background(), Event{Kind: kind, Detail: message})
}

// ReportError forwards err to the underlying logger and records it as an
// audit event: KindDropped when err is a cerr.Error reporting an entry
// dropped without dispatch (unknown locale, missing document), KindFailed
// for everything else (a check that ran and failed, a fatal worker panic).
func (a *LoggingAdapter) ReportError(err error) {
	a.underlying.ReportError(err)
	if err == nil {
		return
	}
	kind := KindFailed
	if cerr.IsCode(err, cerr.UnknownLocale) || cerr.IsCode(err, cerr.DocumentNotFound) {
		kind = KindDropped
	}
	_ = a.log.Record(context.Background(), Event{Kind: kind, Detail: err.Error()})
}
