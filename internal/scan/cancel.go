package scan

import (
	"context"
	"sync/atomic"
)

// CancelOnDone sets flag once ctx is done. Calling stop detaches flag from
// ctx; it reports whether the flag had not been set yet.
func CancelOnDone(ctx context.Context, flag *atomic.Bool) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		flag.Store(true)
	})
}
