package push

import "context"

// Flush waits until every request queued before the call has been processed.
func Flush(ctx context.Context, c Controller) error {
	return c.(*controller).flush(ctx)
}

// WaitLoop waits until the reconciliation loop goroutine has returned.
func WaitLoop(ctx context.Context, c Controller) error {
	select {
	case <-c.(*controller).done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
