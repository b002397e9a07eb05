package client

import (
	"context"
	"fmt"
	"time"
)

// sleepContext waits for d unless the context ends first. Every rate-limit
// wait in the client goes through this, so a cancelled run stops mid-sleep
// instead of finishing a cooldown nobody is waiting for.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}
