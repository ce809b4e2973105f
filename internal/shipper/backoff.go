package shipper

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig parameterizes the retry schedule (spec §4.5 step 4).
type BackoffConfig struct {
	MaxWait    time.Duration // retry_max_wait
	Multiplier float64       // retry_multiplier
}

// Backoff computes the decorrelated-jitter sleep for successive retry
// attempts of a single batch's delivery. It is grounded on the teacher's
// internal/supervisor/backoff.go (attempt counter + *rand.Rand +
// Next/Reset shape), but its Calculate formula is replaced: the source
// used a multiplicative-jitter ("base ± JitterPct/2") schedule suited to
// process-restart backoff, while spec §4.5 names an exact decorrelated
// formula — min(retry_max_wait, retry_multiplier·2^(attempt-1))·U, U
// uniform in [0.5, 1.0] — which this type reproduces instead.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff returns a Backoff seeded from seed, so tests can assert
// deterministic sequences.
func NewBackoff(cfg BackoffConfig, seed int64) *Backoff {
	return &Backoff{config: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the sleep duration for the next retry attempt and
// increments the attempt counter. attempt numbering starts at 1 for the
// first retry.
func (b *Backoff) Next() time.Duration {
	b.attempts++
	return b.calculate(b.attempts)
}

// Attempts returns the number of retries taken so far (not counting the
// initial attempt).
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset zeroes the attempt counter, e.g. after a 401/403 token refresh,
// which spec §4.5 step 3 says retries "immediately without counting
// against the retry budget."
func (b *Backoff) Reset() {
	b.attempts = 0
}

func (b *Backoff) calculate(attempt int) time.Duration {
	base := b.config.Multiplier * math.Pow(2, float64(attempt-1))
	capped := math.Min(float64(b.config.MaxWait), base*float64(time.Second))
	u := 0.5 + 0.5*b.rng.Float64() // uniform in [0.5, 1.0]
	return time.Duration(capped * u)
}
