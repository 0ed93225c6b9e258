package executor

import (
	"context"
	"time"

	"github.com/oshokin/git-atomic/internal/logger"
)

// Policy is the immutable retry configuration applied at one call site.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first one.
	// Values below one are treated as one.
	MaxAttempts int
	// Delay is the fixed pause between consecutive attempts.
	Delay time.Duration
	// AttemptTimeout is the wall-clock deadline for each individual attempt.
	AttemptTimeout time.Duration
}

// attempts returns the effective attempt budget.
func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}

	return p.MaxAttempts
}

// RunWithRetry executes argv under the policy, stopping at the first success.
// Timeouts and failures are retried identically. After the budget is
// exhausted the final attempt is returned as-is: callers only need the last
// observed classification, not an aggregate. The returned error is non-nil
// only when the caller's context is canceled mid-loop.
func (r *Runner) RunWithRetry(ctx context.Context, argv []string, policy Policy) (Attempt, error) {
	total := policy.attempts()

	var attempt Attempt

	for number := 1; number <= total; number++ {
		var err error

		attempt, err = r.Run(ctx, argv, policy.AttemptTimeout)
		if err != nil {
			return attempt, err
		}

		logAttempt(ctx, attempt, number, total)

		if attempt.Status == StatusSuccess {
			return attempt, nil
		}

		if number == total {
			break
		}

		timer := time.NewTimer(policy.Delay)

		select {
		case <-ctx.Done():
			timer.Stop()

			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return attempt, nil
}

// logAttempt reports one attempt's classification at the appropriate level.
func logAttempt(ctx context.Context, attempt Attempt, number, total int) {
	kvs := []any{
		"command", CommandLine(attempt.Command),
		"attempt", number,
		"max_attempts", total,
		"status", attempt.Status.String(),
		"duration", attempt.Duration(),
	}

	if attempt.Status == StatusSuccess {
		logger.DebugKV(ctx, "Command succeeded", kvs...)

		return
	}

	kvs = append(kvs, "exit_code", attempt.ExitCode, "output", attempt.Output)

	logger.WarnKV(ctx, "Command attempt failed", kvs...)
}
