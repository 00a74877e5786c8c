package trace

import (
	"context"
	"fmt"
	"time"
)

// Logf emits a point event named name with a formatted detail. The
// language server forwards these to the client as window/logMessage.
func Logf(t Tracer, scope Scope, name, format string, args ...any) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	emitPoint(t, KindPoint, scope, 0, name, fmt.Sprintf(format, args...))
}

// Errorf emits an error event. Error events pass every enabled level.
func Errorf(t Tracer, scope Scope, name, format string, args ...any) {
	if t == nil || !t.Enabled() {
		return
	}
	emitPoint(t, KindError, scope, 0, name, fmt.Sprintf(format, args...))
}

// LogContext is Logf with the tracer and parent span taken from ctx.
func LogContext(ctx context.Context, scope Scope, name, format string, args ...any) {
	t := FromContext(ctx)
	if !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	emitPoint(t, KindPoint, scope, parentID(ctx), name, fmt.Sprintf(format, args...))
}

func emitPoint(t Tracer, kind Kind, scope Scope, parent uint64, name, detail string) {
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     kind,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
