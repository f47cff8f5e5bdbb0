package guard

import (
	"net/http"
	"sync"
	"time"
)

// Cache-Control values emitted by the Advisor. The thresholds and window size
// are deliberately named constants rather than configuration so tests can pin
// the exact policy.
const (
	CacheNever = "no-store, no-cache, must-revalidate"
	CacheSkip  = "no-store"
	CacheWarm  = "public, max-age=0, s-maxage=30, stale-while-revalidate=30"
	CacheSlow  = "public, max-age=0, s-maxage=60, stale-while-revalidate=30"
)

const (
	advisorSampleWindow = 50
	advisorSlowMean     = 200 * time.Millisecond
	advisorWarmMean     = 120 * time.Millisecond
)

// Advice is the Advisor's verdict for one measured invocation.
type Advice struct {
	// CacheControl is attached verbatim to the HTTP response by the caller.
	CacheControl string
	Latency      time.Duration
}

// Advisor measures per-route latency and recommends a Cache-Control directive
// from the rolling mean: routes that are consistently slow earn edge caching,
// fast routes are assumed cheap enough to always recompute, and mutations are
// never cached.
type Advisor struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	now     func() time.Time
}

// NewAdvisor constructs an Advisor. nowFn overrides the clock; nil means time.Now.
func NewAdvisor(nowFn func() time.Time) *Advisor {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Advisor{
		samples: make(map[string][]time.Duration),
		now:     nowFn,
	}
}

// Measure runs fn, records its latency under key, and derives the cache
// advice for the given HTTP method. The latency is recorded whether or not fn
// fails: a failing route is still a slow route.
func (a *Advisor) Measure(key, method string, fn func() error) (Advice, error) {
	start := a.now()
	err := fn()
	elapsed := a.now().Sub(start)

	mean := a.record(key, elapsed)

	return Advice{
		CacheControl: adviseCache(method, mean),
		Latency:      elapsed,
	}, err
}

// record appends elapsed to key's window, evicting the oldest sample past
// advisorSampleWindow, and returns the mean of the retained samples.
func (a *Advisor) record(key string, elapsed time.Duration) time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := append(a.samples[key], elapsed)
	if len(s) > advisorSampleWindow {
		s = s[len(s)-advisorSampleWindow:]
	}
	a.samples[key] = s

	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s))
}

func adviseCache(method string, mean time.Duration) string {
	if method != http.MethodGet {
		return CacheNever
	}
	switch {
	case mean > advisorSlowMean:
		return CacheSlow
	case mean > advisorWarmMean:
		return CacheWarm
	default:
		return CacheSkip
	}
}
