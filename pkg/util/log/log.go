// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log is a thin context-aware logging layer used by the optimizer.
// Messages are formatted with redact, prefixed with the logging tags attached
// to the context, and written through glog. Verbose events are additionally
// recorded on the active tracing span, if any.
package log

import (
	"context"
	"flag"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/golang/glog"
	"go.opentelemetry.io/otel/trace"
)

// Level specifies a level of verbosity for V logs.
type Level int32

var redactableLogs atomic.Bool

// SetRedactable controls whether emitted messages retain redaction markers
// around unsafe values. It returns the previous setting.
func SetRedactable(b bool) (prev bool) {
	return redactableLogs.Swap(b)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level Level) bool {
	return bool(glog.V(glog.Level(level)))
}

// ExpensiveLogEnabled is used to test whether effort should be used to
// produce log messages whose construction has a measurable cost. It returns
// true if either the current context is recording a trace or the verbosity
// is at or above the given level.
func ExpensiveLogEnabled(ctx context.Context, level Level) bool {
	if trace.SpanFromContext(ctx).IsRecording() {
		return true
	}
	return V(level)
}

// Infof logs to the INFO log.
func Infof(ctx context.Context, format string, args ...interface{}) {
	glog.InfoDepth(1, makeMessage(ctx, format, args))
}

// Warningf logs to the WARNING and INFO logs.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	glog.WarningDepth(1, makeMessage(ctx, format, args))
}

// Errorf logs to the ERROR, WARNING, and INFO logs.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	glog.ErrorDepth(1, makeMessage(ctx, format, args))
}

// VEventf either logs a message to the INFO log (if the verbosity is at or
// above the given level) and, independently, adds it as an event on the span
// in the context, if that span is recording.
func VEventf(ctx context.Context, level Level, format string, args ...interface{}) {
	span := trace.SpanFromContext(ctx)
	verbose := V(level)
	if !verbose && !span.IsRecording() {
		return
	}
	msg := makeMessage(ctx, format, args)
	if span.IsRecording() {
		span.AddEvent(msg)
	}
	if verbose {
		glog.InfoDepth(1, msg)
	}
}

func makeMessage(ctx context.Context, format string, args []interface{}) string {
	msg := redact.Sprintf(format, args...)
	var s string
	if redactableLogs.Load() {
		s = string(msg)
	} else {
		s = msg.StripMarkers()
	}
	if tags := logtags.FromContext(ctx); tags != nil {
		return "[" + tags.String() + "] " + s
	}
	return s
}

// Flush writes any buffered log entries to their destinations.
func Flush() {
	glog.Flush()
}

// TestLogScope redirects log output to standard error, where the test
// framework captures it, until Close is called.
type TestLogScope struct {
	redactable bool
	restore    []func()
}

type tShim interface {
	Helper()
	Fatal(args ...interface{})
}

// Scope starts a logging scope for a test. Use it as:
//
//	defer log.Scope(t).Close(t)
func Scope(t tShim) *TestLogScope {
	t.Helper()
	s := &TestLogScope{redactable: SetRedactable(false)}
	s.setFlag(t, "logtostderr", "true")
	return s
}

func (s *TestLogScope) setFlag(t tShim, name, value string) {
	f := flag.Lookup(name)
	if f == nil {
		return
	}
	prev := f.Value.String()
	if err := f.Value.Set(value); err != nil {
		t.Fatal(err)
	}
	s.restore = append(s.restore, func() { _ = f.Value.Set(prev) })
}

// Close flushes the logs and restores the settings in effect before Scope.
func (s *TestLogScope) Close(t tShim) {
	t.Helper()
	Flush()
	for i := len(s.restore) - 1; i >= 0; i-- {
		s.restore[i]()
	}
	SetRedactable(s.redactable)
}
