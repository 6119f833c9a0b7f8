package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/config"
	"github.com/fyrsmithlabs/contextd/internal/intent"
	"github.com/fyrsmithlabs/contextd/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	lastReq llm.CompleteRequest
	resp    *llm.Response
	err     error
}

func (c *recordingClient) Complete(ctx context.Context, req llm.CompleteRequest) (*llm.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		MaxToolInvocations: 6,
		Fast: config.ModelTierConfig{
			Model:        "claude-haiku-4-5",
			Timeout:      10 * time.Second,
			MaxToolCalls: 2,
		},
		Pro: config.ModelTierConfig{
			Model:        "claude-sonnet-4-5",
			Timeout:      30 * time.Second,
			MaxToolCalls: 6,
		},
		DeepThink: config.ModelTierConfig{
			Model:        "claude-opus-4-1",
			Timeout:      90 * time.Second,
			MaxToolCalls: 6,
		},
	}
}

func TestTierRouter_ConfigFor(t *testing.T) {
	router := llm.NewTierRouter(&recordingClient{}, testOrchestratorConfig())

	assert.Equal(t, "claude-haiku-4-5", router.ConfigFor(intent.Fast).Model)
	assert.Equal(t, "claude-sonnet-4-5", router.ConfigFor(intent.Pro).Model)
	assert.Equal(t, "claude-opus-4-1", router.ConfigFor(intent.DeepThink).Model)
	assert.Equal(t, "claude-sonnet-4-5", router.ConfigFor(intent.Tier("unknown")).Model, "unrecognized tiers default to pro")
}

func TestTierRouter_Complete_FillsModelFromTier(t *testing.T) {
	client := &recordingClient{resp: &llm.Response{Content: "ok"}}
	router := llm.NewTierRouter(client, testOrchestratorConfig())

	resp, err := router.Complete(context.Background(), intent.Fast, llm.CompleteRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "claude-haiku-4-5", client.lastReq.Model)
}

func TestTierRouter_MaxToolCalls_FallsBackToOrchestratorDefault(t *testing.T) {
	cfg := testOrchestratorConfig()
	cfg.Fast.MaxToolCalls = 0
	router := llm.NewTierRouter(&recordingClient{}, cfg)

	assert.Equal(t, 6, router.MaxToolCalls(intent.Fast))
	assert.Equal(t, 6, router.MaxToolCalls(intent.Pro), "pro's own configured budget is untouched")
}
