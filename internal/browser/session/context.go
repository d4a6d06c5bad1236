// internal/browser/session/context.go
package session

import (
	"context"
)

// CombineContext derives a context from tabCtx, which carries the chromedp target,
// that is also cancelled as soon as callerCtx is done. Values come from tabCtx only,
// so chromedp can still find its target; the caller's cancellation cause is preserved.
func CombineContext(tabCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(tabCtx)
	stop := context.AfterFunc(callerCtx, func() {
		cancel(context.Cause(callerCtx))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
