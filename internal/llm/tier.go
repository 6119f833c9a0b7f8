package llm

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/intent"
)

// TierRouter resolves an intent.Tier to its configured model, timeout, and
// tool-call budget, then drives Client.Complete under that timeout — the
// Agentic Orchestrator only ever deals in tiers, never model names.
type TierRouter struct {
	client Client
	cfg    config.OrchestratorConfig
}

// NewTierRouter wires a TierRouter over a single Client shared across tiers;
// the model name per-request is what varies, not the transport.
func NewTierRouter(client Client, cfg config.OrchestratorConfig) *TierRouter {
	return &TierRouter{client: client, cfg: cfg}
}

// ConfigFor returns the ModelTierConfig backing tier.
func (t *TierRouter) ConfigFor(tier intent.Tier) config.ModelTierConfig {
	switch tier {
	case intent.Fast:
		return t.cfg.Fast
	case intent.DeepThink:
		return t.cfg.DeepThink
	default:
		return t.cfg.Pro
	}
}

// Complete resolves tier's model/timeout onto req and runs it.
func (t *TierRouter) Complete(ctx context.Context, tier intent.Tier, req CompleteRequest) (*Response, error) {
	tc := t.ConfigFor(tier)
	if tc.Model != "" {
		req.Model = tc.Model
	}
	if tc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tc.Timeout)
		defer cancel()
	}
	return t.client.Complete(ctx, req)
}

// MaxToolCalls returns the tool-invocation budget for tier, falling back to
// the orchestrator-wide default when the tier doesn't set its own.
func (t *TierRouter) MaxToolCalls(tier intent.Tier) int {
	if n := t.ConfigFor(tier).MaxToolCalls; n > 0 {
		return n
	}
	if t.cfg.MaxToolInvocations > 0 {
		return t.cfg.MaxToolInvocations
	}
	return 6
}

// Timeout returns the per-call deadline for tier.
func (t *TierRouter) Timeout(tier intent.Tier) time.Duration {
	return t.ConfigFor(tier).Timeout
}
