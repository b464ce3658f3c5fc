package promotion

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/relgov/gateway/internal/auth"
	"github.com/relgov/gateway/internal/backend"
	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// Verdict is the result of one promotion evaluation. Evaluations are pure
// reads over backend state; repeating one never changes the outcome. The
// field set and names are the wire contract consumed by release tooling.
type Verdict struct {
	Allowed        bool    `json:"allowed"`
	ReleaseID      string  `json:"releaseId"`
	Score          float64 `json:"score"`
	MinScore       float64 `json:"minScore"`
	ApprovalCount  int     `json:"approvalCount"`
	MinApprovals   int     `json:"minApprovals"`
	HasEvidenceURL bool    `json:"hasEvidenceUrl"`
	IsFrozen       bool    `json:"isFrozen"`
	Reason         string  `json:"reason"`
}

// Engine evaluates releases against the active promotion policy.
type Engine struct {
	client  backend.Client
	store   *PolicyStore
	logger  observability.Logger
	metrics *observability.Metrics
}

// EngineOption is a functional option for the engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger observability.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEngineMetrics sets the engine metrics.
func WithEngineMetrics(metrics *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// NewEngine creates a promotion engine over the given backend client and
// policy store.
func NewEngine(client backend.Client, store *PolicyStore, opts ...EngineOption) *Engine {
	e := &Engine{
		client: client,
		store:  store,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate evaluates whether the release may be promoted to production. The
// caller's identity must be present in the context; its token is forwarded
// to the backend so governance reads run under the caller's credentials.
func (e *Engine) Validate(ctx context.Context, releaseID string) (*Verdict, error) {
	identity, err := auth.IdentityFromContextOrError(ctx)
	if err != nil {
		return nil, gwerror.Forbidden("User context required")
	}

	headers := map[string]string{}
	if identity.RawToken != "" {
		headers["Authorization"] = "Bearer " + identity.RawToken
	}

	resp, err := e.client.Get(ctx, "/releases/"+url.PathEscape(releaseID), headers)
	if err != nil {
		return nil, err
	}
	release, err := backend.DecodeRelease(resp.Body)
	if err != nil {
		return nil, gwerror.BackendUnavailable().WithCause(err)
	}

	resp, err = e.client.Get(ctx, "/approvals?release_id="+url.QueryEscape(releaseID), headers)
	if err != nil {
		return nil, err
	}
	approvals, err := backend.DecodeApprovals(resp.Body)
	if err != nil {
		return nil, gwerror.BackendUnavailable().WithCause(err)
	}

	policy := e.store.Current()
	verdict := evaluate(releaseID, release, backend.CountApproved(approvals), policy)

	if e.metrics != nil {
		e.metrics.RecordPromotionVerdict(verdict.Allowed)
	}
	e.logger.WithContext(ctx).Info("promotion evaluated",
		observability.String("release_id", releaseID),
		observability.String("user_id", identity.ID),
		observability.Bool("allowed", verdict.Allowed),
		observability.String("reason", verdict.Reason),
	)

	return verdict, nil
}

// evaluate applies the policy predicates to already-normalized state. The
// freeze flag is advisory for now; no backend field feeds it yet.
func evaluate(releaseID string, release backend.Release, approvalCount int, policy Policy) *Verdict {
	verdict := &Verdict{
		ReleaseID:      releaseID,
		Score:          release.EvidenceScore,
		MinScore:       policy.MinScore,
		ApprovalCount:  approvalCount,
		MinApprovals:   policy.MinApprovals,
		HasEvidenceURL: release.EvidenceURL != "",
		IsFrozen:       false,
	}

	var reasons []string
	if verdict.Score < policy.MinScore {
		reasons = append(reasons, fmt.Sprintf(
			"Evidence score %s is below the minimum %s",
			formatScore(verdict.Score), formatScore(policy.MinScore)))
	}
	if verdict.ApprovalCount < policy.MinApprovals {
		reasons = append(reasons, fmt.Sprintf(
			"Requires %d approval(s), has %d", policy.MinApprovals, verdict.ApprovalCount))
	}
	if !verdict.HasEvidenceURL {
		reasons = append(reasons, "Evidence URL is required")
	}
	if verdict.IsFrozen {
		reasons = append(reasons, "Release is frozen")
	}

	verdict.Allowed = len(reasons) == 0
	if verdict.Allowed {
		verdict.Reason = "All promotion requirements met"
	} else {
		verdict.Reason = strings.Join(reasons, "; ")
	}
	return verdict
}

// formatScore renders a score without a trailing ".0" for whole numbers.
func formatScore(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
