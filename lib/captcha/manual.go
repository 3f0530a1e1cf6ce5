package captcha

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caseharvest/lib/notify"
)

// Manual waits for a person to solve the widget in the open browser
// window and push the search through by hand. It watches the page
// title for the expected signal on a short poll, with an hours scale
// ceiling so a forgotten run eventually dies instead of idling
// forever. Cancel the context to give up earlier.
type Manual struct {
	// Title reads the current page title, bound to the live browser at
	// wiring time.
	Title        func(ctx context.Context) (string, error)
	Notifier     notify.Notifier
	PollInterval time.Duration
	Ceiling      time.Duration
}

func (m Manual) Solve(ctx context.Context, challenge Challenge) (Result, error) {
	ctx, span := tracer.Start(ctx, "Manual.Solve")
	defer span.End()

	poll := m.PollInterval
	if poll == 0 {
		poll = 2 * time.Second
	}
	ceiling := m.Ceiling
	if ceiling == 0 {
		ceiling = 6 * time.Hour
	}

	if m.Notifier != nil {
		err := m.Notifier.Notify(
			ctx,
			"challenge waiting on a manual solve",
			fmt.Sprintf("case %s is blocked on the search page, go solve the widget", challenge.Expect),
		)
		if err != nil {
			slog.Warn("failed to notify the operator", "err", err)
		}
	}
	slog.Info("waiting on a human to solve the challenge", "expect", challenge.Expect, "ceiling", ceiling)

	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	lastReminder := time.Now()

	for {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("gave up waiting for a manual solve: %w", ctx.Err())
		case <-ticker.C:
		}

		title, err := m.Title(ctx)
		if err != nil {
			// a flaky title read must not kill an hours long wait
			slog.Debug("title read failed while waiting", "err", err)
			continue
		}
		if strings.Contains(title, challenge.Expect) {
			slog.Info("manual solve detected", "title", title)
			return Result{}, nil
		}
		if time.Since(lastReminder) > time.Minute {
			slog.Info("still waiting on a manual solve", "expect", challenge.Expect)
			lastReminder = time.Now()
		}
	}
}
