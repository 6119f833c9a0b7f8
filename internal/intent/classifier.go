// Package intent classifies a query into an intent label and a model tier
// using a pure, explicit rule table rather than a learned model — fast
// (<1ms) and reviewable without reading code.
package intent

import "regexp"

// Tier selects which model-tier the Agentic Orchestrator should use to
// answer a query.
type Tier string

const (
	Fast      Tier = "fast"
	Pro       Tier = "pro"
	DeepThink Tier = "deep_think"
)

// Intent labels a query's communicative purpose.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentCasual          Intent = "casual"
	IntentIdentity        Intent = "identity"
	IntentBusinessSimple  Intent = "business_simple"
	IntentBusinessComplex Intent = "business_complex"
	IntentStrategy        Intent = "strategy"
	IntentAnalysis        Intent = "analysis"
	IntentRisk            Intent = "risk"
	IntentComparison      Intent = "comparison"
	IntentUnknown         Intent = "unknown"
)

// Classification is the result of classifying a query.
type Classification struct {
	Intent Intent
	Tier   Tier
}

// rule pairs a compiled pattern with the intent/tier it signals. Rules are
// tried in order; the first match wins.
type rule struct {
	pattern *regexp.Regexp
	intent  Intent
	tier    Tier
}

// rules is the classifier's decision table. Keep additions here, not in
// code branches, so the full rule set stays auditable in one place.
//
//	pattern                                          intent              tier
//	------------------------------------------------  ------------------  ----------
//	greetings (ciao, hello, hi, halo)                  greeting            fast
//	how-are-you / small talk                           casual              fast
//	"who are you" / "what are you"                     identity            fast
//	simple business terms (nib, pt pma, kbli)          business_simple     fast
//	complex business terms (requisiti, costi,          business_complex    pro
//	  procedure, persyaratan, biaya)
//	strategy / long-term planning language              strategy            deep_think
//	analysis / deep-dive requests                       analysis            deep_think
//	risk assessment language                             risk                deep_think
//	comparison ("vs", "compare", "which is better")      comparison          deep_think
var rules = []rule{
	{regexp.MustCompile(`(?i)^\s*(ciao|hello|hi|hey|halo|salve)\b`), IntentGreeting, Fast},
	{regexp.MustCompile(`(?i)\b(come stai|how are you|apa kabar|come va)\b`), IntentCasual, Fast},
	{regexp.MustCompile(`(?i)\b(who are you|chi sei|siapa kamu|what are you)\b`), IntentIdentity, Fast},
	{regexp.MustCompile(`(?i)\b(nib|pt pma|kbli|oss)\b`), IntentBusinessSimple, Fast},
	{regexp.MustCompile(`(?i)\b(requisiti|costi|procedure|persyaratan|biaya|requirements?|costs?)\b`), IntentBusinessComplex, Pro},
	{regexp.MustCompile(`(?i)\b(strateg(y|ia|i)|long[- ]term|piano a lungo termine|rencana jangka panjang)\b`), IntentStrategy, DeepThink},
	{regexp.MustCompile(`(?i)\b(analys(is|i)|deep dive|analisi approfondita|analisis mendalam)\b`), IntentAnalysis, DeepThink},
	{regexp.MustCompile(`(?i)\b(risks?|rischi|risiko|risk assessment)\b`), IntentRisk, DeepThink},
	{regexp.MustCompile(`(?i)\b(vs\.?|versus|compare|confronto|bandingkan|which is better|quale è meglio)\b`), IntentComparison, DeepThink},
}

// Classify returns the Classification for query. On no rule match, it
// defaults to {Unknown, Pro} — a query that doesn't look like small talk or
// a deep-reasoning request gets the default-quality model rather than the
// cheapest or most expensive tier.
func Classify(query string) Classification {
	for _, r := range rules {
		if r.pattern.MatchString(query) {
			return Classification{Intent: r.intent, Tier: r.tier}
		}
	}
	return Classification{Intent: IntentUnknown, Tier: Pro}
}
