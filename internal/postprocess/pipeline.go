package postprocess

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/contextd/internal/language"
	"github.com/fyrsmithlabs/contextd/internal/llm"
	"go.uber.org/zap"
)

const maxCitations = 5

// lowConfidenceBanner replaces the Sources footer when the verification
// score falls below 50.
const lowConfidenceBanner = "\n\n_This answer could not be fully verified against the knowledge base. Please confirm with a licensed advisor before relying on it._"

// Processor runs the six-step Response Post-Processor pipeline.
type Processor struct {
	// translator re-runs a draft in a different language when the query's
	// detected language disagrees with the draft's. Optional: a nil
	// translator skips step 2 rather than failing the whole pipeline,
	// since a missing retranslation pass is recoverable but a crashed
	// response is not.
	translator      llm.Client
	translatorModel string
	defaultLanguage language.Code
	logger          *zap.Logger
}

// NewProcessor builds a Processor. translator may be nil.
func NewProcessor(translator llm.Client, translatorModel string, defaultLanguage language.Code, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		translator:      translator,
		translatorModel: translatorModel,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

// Process runs the ordered transformation pipeline over req.Draft.
func (p *Processor) Process(ctx context.Context, req Request) Result {
	draft := stripInternalReasoning(req.Draft)
	draft = p.enforceLanguage(ctx, req.Query, draft)

	if language.IsProcedural(req.Query) {
		draft = enforceProceduralFormatting(draft)
	}

	if language.HasEmotionalContent(req.Query) {
		draft = injectEmotionalAcknowledgment(draft, string(p.queryLanguage(req.Query)))
	}

	var hits []SearchHit
	for _, tr := range req.ToolTrace {
		if tr.Tool == "vector_search" {
			hits = append(hits, tr.Results...)
		}
	}
	score := computeVerificationScore(hits)

	var citations []Citation
	if score >= 50 {
		draft, citations = buildCitations(draft, req.ToolTrace, maxCitations)
	} else {
		draft += lowConfidenceBanner
	}

	return Result{
		Text:              draft,
		Citations:         citations,
		VerificationScore: score,
		Confidence:        bucketConfidence(score),
		LowConfidence:     score < 50,
	}
}

func (p *Processor) queryLanguage(query string) language.Code {
	if lang := language.DetectLanguage(query); lang != language.Unknown {
		return lang
	}
	return p.defaultLanguage
}

// enforceLanguage re-translates draft into the query's language if they
// disagree. p.translator may be nil (no further model turn available), in
// which case the mismatch is logged and the draft passes through
// unchanged — a degraded but non-fatal outcome.
func (p *Processor) enforceLanguage(ctx context.Context, query, draft string) string {
	queryLang := p.queryLanguage(query)
	draftLang := language.DetectLanguage(draft)
	if draftLang == language.Unknown || draftLang == queryLang {
		return draft
	}

	if p.translator == nil {
		p.logger.Debug("postprocess: language mismatch, no translator configured",
			zap.String("query_lang", string(queryLang)), zap.String("draft_lang", string(draftLang)))
		return draft
	}

	resp, err := p.translator.Complete(ctx, llm.CompleteRequest{
		Model:     p.translatorModel,
		MaxTokens: 2048,
		System:    fmt.Sprintf("Translate the following answer into %s, preserving its structure and meaning exactly. Output only the translation.", queryLang),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: draft},
		},
	})
	if err != nil {
		p.logger.Warn("postprocess: retranslation failed, keeping original draft", zap.Error(err))
		return draft
	}
	return resp.Content
}
