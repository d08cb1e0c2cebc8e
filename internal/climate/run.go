package climate

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoState is returned by Once when the backend stops before pushing any state.
var ErrNoState = errors.New("backend stopped before reporting a state")

// Once starts b, waits for its first state push and calls fn with it. The
// backend is stopped when fn returns. It suits one-shot commands that read
// an entity or write to it once.
func Once(ctx context.Context, b Backend, fn func(ctx context.Context, st State) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := make(chan State, 1)
	done := make(chan error, 1)
	go func() {
		done <- b.Run(runCtx, func(st State) {
			select {
			case first <- st:
			default:
			}
		})
	}()

	var st State
	select {
	case st = <-first:
	case err := <-done:
		if err != nil {
			return err
		}
		return ErrNoState
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := fn(runCtx, st); err != nil {
		return err
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("backend shutdown: %w", err)
	}
	return nil
}
