package postprocess

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/contextd/internal/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripInternalReasoning(t *testing.T) {
	draft := "Okay, since the user asked about KITAS, observation: they need a sponsor.\n" +
		"THOUGHT: I should mention the fee.\n" +
		"A KITAS requires a local sponsor and costs approximately IDR 500,000.\n" +
		"Observation: done."

	got := stripInternalReasoning(draft)
	assert.Equal(t, "A KITAS requires a local sponsor and costs approximately IDR 500,000.", got)
}

func TestComputeVerificationScore(t *testing.T) {
	t.Run("no hits scores zero", func(t *testing.T) {
		assert.Equal(t, 0, computeVerificationScore(nil))
	})

	t.Run("few low-score hits stay in the low bucket", func(t *testing.T) {
		score := computeVerificationScore([]SearchHit{{Score: 0.3}})
		assert.Less(t, score, 50)
		assert.Equal(t, ConfidenceLow, bucketConfidence(score))
	})

	t.Run("authoritative high-similarity hits reach the high bucket", func(t *testing.T) {
		hits := []SearchHit{
			{Score: 0.95, Metadata: map[string]interface{}{"regulation_number": "PP-2024-11"}},
			{Score: 0.9},
			{Score: 0.88},
			{Score: 0.85},
		}
		score := computeVerificationScore(hits)
		assert.GreaterOrEqual(t, score, 80)
		assert.Equal(t, ConfidenceHigh, bucketConfidence(score))
	})
}

func TestBuildCitations(t *testing.T) {
	trace := []ToolResult{
		{Tool: "calculator"},
		{
			Tool: "vector_search",
			Results: []SearchHit{
				{Text: "A KITAS is a limited stay permit.", Score: 0.9, SourceCollection: "kb_visa",
					Metadata: map[string]interface{}{"title": "KITAS Overview", "link": "https://example.com/kitas"}},
				{Text: "Sponsors must be a PT PMA or local entity.", Score: 0.8, SourceCollection: "kb_visa"},
			},
		},
	}

	draft, citations := buildCitations("Here is your answer.", trace, 5)
	require.Len(t, citations, 2)
	assert.Equal(t, "KITAS Overview", citations[0].Title)
	assert.Equal(t, "https://example.com/kitas", citations[0].Link)
	assert.Contains(t, draft, "Sources:")
	assert.Contains(t, draft, "[1]")
	assert.Contains(t, draft, "[2]")
}

func TestProcessor_Process_LowConfidenceBanner(t *testing.T) {
	p := NewProcessor(nil, "", language.English, nil)

	result := p.Process(context.Background(), Request{
		Query: "What is a KITAS?",
		Draft: "A KITAS is a limited stay permit.",
	})

	assert.Equal(t, ConfidenceLow, result.Confidence)
	assert.True(t, result.LowConfidence)
	assert.Empty(t, result.Citations)
	assert.Contains(t, result.Text, "could not be fully verified")
}

func TestProcessor_Process_AttachesCitationsWhenVerified(t *testing.T) {
	p := NewProcessor(nil, "", language.English, nil)

	trace := []ToolResult{
		{
			Tool: "vector_search",
			Results: []SearchHit{
				{Text: "A KITAS requires a local sponsor.", Score: 0.95, SourceCollection: "kb_visa",
					Metadata: map[string]interface{}{"regulation_number": "PP-2024-11", "title": "KITAS rules"}},
				{Text: "Sponsors must be registered.", Score: 0.9, SourceCollection: "kb_visa"},
				{Text: "Fees vary by region.", Score: 0.85, SourceCollection: "kb_visa"},
				{Text: "Renewal is annual.", Score: 0.8, SourceCollection: "kb_visa"},
			},
		},
	}

	result := p.Process(context.Background(), Request{
		Query:     "What is a KITAS?",
		Draft:     "A KITAS is a limited stay permit.",
		ToolTrace: trace,
	})

	assert.False(t, result.LowConfidence)
	assert.NotEmpty(t, result.Citations)
	assert.Contains(t, result.Text, "Sources:")
}

func TestProcessor_Process_ReformatsProceduralAnswers(t *testing.T) {
	p := NewProcessor(nil, "", language.English, nil)

	result := p.Process(context.Background(), Request{
		Query: "How do I renew my KITAS?",
		Draft: "First gather your documents. Then visit the immigration office. Finally pay the renewal fee.",
	})

	assert.Regexp(t, `(?m)^1\. `, result.Text)
	assert.Regexp(t, `(?m)^2\. `, result.Text)
}

func TestProcessor_Process_InjectsAcknowledgmentForDistressedQueries(t *testing.T) {
	p := NewProcessor(nil, "", language.English, nil)

	result := p.Process(context.Background(), Request{
		Query: "I'm so stressed, please help urgently!!",
		Draft: "A KITAS requires a local sponsor.",
	})

	assert.Contains(t, result.Text, "stressful")
}
