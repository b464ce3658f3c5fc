package middleware

import (
	"net/http"
	"strconv"

	"github.com/relgov/gateway/internal/auth"
	"github.com/relgov/gateway/internal/envelope"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
	"github.com/relgov/gateway/internal/ratelimit"
)

// Rate limit tier names, used as metric labels and key prefixes.
const (
	TierAnonymous = "anonymous"
	TierIdentity  = "identity"
)

// RateLimitTier applies one rate-limiting tier in the chain.
type RateLimitTier struct {
	tier    string
	limiter ratelimit.Limiter
	logger  observability.Logger
	metrics *observability.Metrics
}

// TierOption is a functional option for a rate limit tier.
type TierOption func(*RateLimitTier)

// WithTierLogger sets the tier logger.
func WithTierLogger(logger observability.Logger) TierOption {
	return func(t *RateLimitTier) {
		t.logger = logger
	}
}

// WithTierMetrics sets the tier metrics.
func WithTierMetrics(metrics *observability.Metrics) TierOption {
	return func(t *RateLimitTier) {
		t.metrics = metrics
	}
}

// NewAnonymousTier creates the per-source-address tier. It is skipped
// entirely once a request carries an authenticated user, so authenticated
// traffic is never charged against the anonymous budget.
func NewAnonymousTier(limiter ratelimit.Limiter, opts ...TierOption) *RateLimitTier {
	return newTier(TierAnonymous, limiter, opts...)
}

// NewIdentityTier creates the per-authenticated-identity tier, keyed by user
// id with a fallback to the source address.
func NewIdentityTier(limiter ratelimit.Limiter, opts ...TierOption) *RateLimitTier {
	return newTier(TierIdentity, limiter, opts...)
}

func newTier(tier string, limiter ratelimit.Limiter, opts ...TierOption) *RateLimitTier {
	t := &RateLimitTier{
		tier:    tier,
		limiter: limiter,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handler wraps next with this tier's rate limiting.
func (t *RateLimitTier) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, skip := t.key(r)
		if skip {
			next.ServeHTTP(w, r)
			return
		}

		result, err := t.limiter.Allow(r.Context(), key)
		if err != nil {
			// A broken counter store must not take the gateway down with
			// it; the request passes and the condition is logged.
			t.logger.WithContext(r.Context()).Warn("rate limit check failed",
				observability.String("tier", t.tier),
				observability.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		setRateLimitHeaders(w, result)

		if !result.Allowed {
			t.logger.WithContext(r.Context()).Warn("rate limit exceeded",
				observability.String("tier", t.tier),
				observability.String("key", key),
				observability.String("path", r.URL.Path),
			)
			if t.metrics != nil {
				t.metrics.RecordRateLimitRejection(t.tier)
			}

			retrySecs := int(result.RetryAfter.Seconds())
			if retrySecs < 1 {
				retrySecs = 1
			}
			w.Header().Set(HeaderRetryAfter, strconv.Itoa(retrySecs))
			envelope.WriteError(w, r, gwerror.TooManyRequests("Too many requests, retry later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// key derives the counter key for this tier, and whether the tier should be
// skipped outright for this request. Keys carry the tier name so tiers
// sharing one store never collide on the same counter.
func (t *RateLimitTier) key(r *http.Request) (string, bool) {
	identity, authenticated := auth.IdentityFromContext(r.Context())

	switch t.tier {
	case TierAnonymous:
		if authenticated {
			return "", true
		}
		return t.tier + ":ip:" + ClientIP(r), false
	default:
		if authenticated {
			return t.tier + ":user:" + identity.ID, false
		}
		return t.tier + ":ip:" + ClientIP(r), false
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderRateLimitReset, strconv.Itoa(int(result.ResetAfter.Seconds())))
}
