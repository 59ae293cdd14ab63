package harvest

import (
	"context"
	"time"
)

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

type noWait struct{}

func (noWait) Wait(context.Context, string) error { return nil }
