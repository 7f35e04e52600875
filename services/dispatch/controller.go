package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/upb/llm-dispatch/services"
	"github.com/upb/llm-dispatch/services/providers"
)

// dispatchAttempt records one failed transport call
type dispatchAttempt struct {
	index int
	tier  string
	err   error
}

// tierPlan fixes which tier each attempt targets
type tierPlan struct {
	override string
	primary  string
	fallback string
}

// attemptState is folded over each failed attempt. Values are never mutated
// in place; observe returns the next state.
type attemptState struct {
	attempts  int
	escalated bool
	lastTier  string
	lastErr   error
}

// tierFor picks the tier for the next attempt. An override pins every attempt;
// otherwise escalation latches onto the fallback tier.
func (p tierPlan) tierFor(s attemptState) string {
	switch {
	case p.override != "":
		return p.override
	case s.escalated:
		return p.fallback
	default:
		return p.primary
	}
}

func (s attemptState) observe(a dispatchAttempt, p tierPlan) attemptState {
	return attemptState{
		attempts:  a.index + 1,
		escalated: s.escalated || (p.override == "" && providers.IsTransientService(a.err)),
		lastTier:  a.tier,
		lastErr:   a.err,
	}
}

// linearBackOff yields base, 2*base, 3*base, ...
type linearBackOff struct {
	base time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.base * time.Duration(b.n)
}

func (b *linearBackOff) Reset() { b.n = 0 }

// newSchedule returns the wait schedule for one call; it stops after
// maxAttempts-1 waits so the loop makes at most maxAttempts attempts.
func newSchedule(base time.Duration, maxAttempts int) backoff.BackOff {
	return backoff.WithMaxRetries(&linearBackOff{base: base}, uint64(maxAttempts-1))
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispatch runs the bounded retry loop for a built request
func (c *Client) dispatch(ctx context.Context, req *providers.ChatRequest, opts Options, logger *zap.Logger) (*CompletionResult, error) {
	plan := tierPlan{
		override: opts.Model,
		primary:  c.config.DefaultModel,
		fallback: c.config.FallbackModel,
	}
	schedule := newSchedule(c.config.BaseDelay, c.config.MaxAttempts)
	state := attemptState{}

	for {
		tier := plan.tierFor(state)

		resp, err := c.transport.ChatCompletion(ctx, req.WithModel(tier))
		if err == nil {
			logger.Info("completion succeeded",
				zap.Int("attempt", state.attempts+1),
				zap.String("tier", tier),
			)
			return normalizeResponse(resp, opts, tier), nil
		}

		next := state.observe(dispatchAttempt{index: state.attempts, tier: tier, err: err}, plan)
		if next.escalated && !state.escalated {
			logger.Info("escalating to fallback tier",
				zap.String("from", tier),
				zap.String("to", plan.fallback),
			)
		}
		state = next

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			break
		}

		logger.Warn("completion attempt failed",
			zap.Int("attempt", state.attempts),
			zap.String("tier", tier),
			zap.String("class", string(providers.Classify(err))),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		if err := c.sleep(ctx, delay); err != nil {
			logger.Warn("dispatch cancelled during backoff", zap.Error(err))
			return nil, services.NewDispatchError(state.attempts, state.lastTier,
				fmt.Errorf("%w; last failure: %w", err, state.lastErr))
		}
	}

	logger.Error("dispatch exhausted",
		zap.Int("attempts", state.attempts),
		zap.String("tier", state.lastTier),
		zap.Error(state.lastErr),
	)
	return nil, services.NewDispatchError(state.attempts, state.lastTier, state.lastErr)
}
