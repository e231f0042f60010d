package githubapi

import "time"

type RetryPolicy struct {
	MaxAttempts int
	// Short wait before switching to a credential that has not been tried in this cycle.
	RotateDelay time.Duration
	// Upper bound for any single wait.
	MaxWait time.Duration
	// Nominal reset window reported when the provider sends no reset header.
	FallbackReset time.Duration
	// Tries per request for timeouts and connection resets, and the first wait
	// between them (doubled each retry).
	TransientAttempts int
	TransientDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 10
	}
	if p.RotateDelay < 0 {
		p.RotateDelay = 0
	}
	if p.FallbackReset <= 0 {
		p.FallbackReset = 60 * time.Second
	}
	if p.TransientAttempts <= 0 {
		p.TransientAttempts = 3
	}
	if p.TransientDelay <= 0 {
		p.TransientDelay = time.Second
	}
	return p
}

// Delay returns how long to wait after the given throttled attempt (1-based).
// While the current cycle still has untried credentials the wait is the short
// RotateDelay. Once every credential has been throttled the wait doubles per
// cycle and stretches to the advertised reset time, capped by MaxWait.
func (p RetryPolicy) Delay(attempt, credentials int, resetAt, now time.Time) time.Duration {
	if credentials < 1 {
		credentials = 1
	}
	if attempt%credentials != 0 {
		return p.RotateDelay
	}

	cycle := attempt / credentials
	wait := p.RotateDelay << uint(min(cycle-1, 16))
	if !resetAt.IsZero() {
		if untilReset := resetAt.Sub(now); untilReset > wait {
			wait = untilReset
		}
	}
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

// TransientWait returns the wait after the n-th failed round trip (1-based).
func (p RetryPolicy) TransientWait(n int) time.Duration {
	wait := p.TransientDelay << uint(min(max(n-1, 0), 16))
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}
