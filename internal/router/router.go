package router

import (
	"sort"
	"strings"

	"github.com/fyrsmithlabs/contextd/internal/config"
)

// epsilon prevents division by zero when computing confidence from an
// all-zero score map.
const epsilon = 1e-9

// domainPriority breaks ties between domains with equal scores, and seeds
// the fallback chain order. Earlier entries win ties and are preferred
// fallbacks.
var domainPriority = []string{"visa", "tax", "legal", "kbli", "property", "team", "cultural"}

// Router classifies a query into a Decision. It is pure and side-effect-free:
// the same input always produces the same output, so it is safe to call
// from both the Search Service and the standalone knowledge-search entry
// point without risk of divergence between the two call sites.
type Router struct {
	cfg config.RouterConfig
}

// New builds a Router from the Intelligent Query Router's static
// configuration (collection catalog, aliases, confidence thresholds).
func New(cfg config.RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// Route classifies query and returns a routing Decision. collectionOverride,
// when non-empty, bypasses classification entirely and routes to that single
// collection at ConfidenceHigh (honoring spec.md 4.D step 2's
// "obtain routing decision... or honor collection_override").
func (r *Router) Route(query string, collectionOverride string) Decision {
	if collectionOverride != "" {
		return Decision{
			PrimaryCollection: collectionOverride,
			Confidence:        1.0,
			Tier:              ConfidenceHigh,
			DomainScores:      map[string]int{},
		}
	}

	if r.detectPricing(query) {
		return Decision{
			PrimaryCollection: r.pricingCollection(),
			Confidence:        1.0,
			Tier:              ConfidenceHigh,
			DomainScores:      map[string]int{},
			Pricing:           true,
		}
	}

	scores := r.scoreDomains(query)
	domain, total := argmaxDomain(scores)

	if total == 0 || domain == "" {
		return Decision{
			PrimaryCollection: r.generalCollection(),
			FallbackChain:     r.fallbackChain(""),
			Confidence:        0,
			Tier:              ConfidenceLow,
			DomainScores:      scores,
		}
	}

	domain = r.collapseAlias(domain)
	primary := r.collectionFor(domain)
	confidence := float64(scores[domain]) / (float64(total) + epsilon)
	tier := r.tierFor(confidence)

	var chain []string
	switch tier {
	case ConfidenceHigh:
		chain = nil
	case ConfidenceMedium:
		chain = r.fallbackChain(domain)
		if len(chain) > 1 {
			chain = chain[:1]
		}
	default:
		chain = r.fallbackChain(domain)
	}

	return Decision{
		PrimaryCollection: primary,
		FallbackChain:     chain,
		Confidence:        confidence,
		Tier:              tier,
		DomainScores:      scores,
	}
}

// scoreDomains runs Phase 1: case-insensitive substring matching of each
// domain's keyword set, each hit contributing +1.
func (r *Router) scoreDomains(query string) map[string]int {
	lower := strings.ToLower(query)
	scores := make(map[string]int, len(domainKeywords))
	for domain, keywords := range domainKeywords {
		count := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > 0 {
			scores[domain] = count
		}
	}
	return scores
}

// detectPricing is the pricing detector: a case-insensitive substring match
// against pricingKeywords, independent of domain scoring. No regular
// expression or question-shape pattern is applied. Firing forces routing to the pricing
// collection with no fallback chain, per spec.md 4.C.
func (r *Router) detectPricing(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range pricingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// argmaxDomain returns the domain with the highest score and the sum of all
// domain scores. Ties are broken by domainPriority order.
func argmaxDomain(scores map[string]int) (string, int) {
	if len(scores) == 0 {
		return "", 0
	}

	total := 0
	for _, s := range scores {
		total += s
	}

	best := ""
	bestScore := -1
	for _, domain := range domainPriority {
		s, ok := scores[domain]
		if !ok {
			continue
		}
		if s > bestScore {
			best = domain
			bestScore = s
		}
	}

	// Domain present in scores but absent from domainPriority (shouldn't
	// happen with the current keyword table, but don't silently drop it).
	if best == "" {
		keys := make([]string, 0, len(scores))
		for k := range scores {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		best = keys[0]
	}

	return best, total
}

// collapseAlias resolves a domain label through the configured alias table
// (cfg.Aliases) onto its canonical domain name. fallbackChain applies it
// before the collection lookup and skips collections it has already seen,
// so two domain labels backed by the same collection never produce two
// fallback entries.
func (r *Router) collapseAlias(domain string) string {
	if canonical, ok := r.cfg.Aliases[domain]; ok {
		return canonical
	}
	return domain
}

func (r *Router) collectionFor(domain string) string {
	if c, ok := r.cfg.Collections[domain]; ok && c != "" {
		return c
	}
	return r.generalCollection()
}

func (r *Router) generalCollection() string {
	if r.cfg.GeneralCollection != "" {
		return r.cfg.GeneralCollection
	}
	return "kb_general"
}

func (r *Router) pricingCollection() string {
	if r.cfg.PricingCollection != "" {
		return r.cfg.PricingCollection
	}
	return "kb_pricing"
}

func (r *Router) tierFor(confidence float64) ConfidenceTier {
	switch {
	case confidence >= r.cfg.HighConfidenceThreshold:
		return ConfidenceHigh
	case confidence >= r.cfg.MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// fallbackChain builds the static collection -> chain[] table lookup: the
// remaining domains' collections in domainPriority order (excluding the
// primary domain), deduplicated by collapsed physical name, capped at 3
// entries, with the general collection appended last.
func (r *Router) fallbackChain(primaryDomain string) []string {
	seen := map[string]bool{r.collectionFor(primaryDomain): true}
	chain := make([]string, 0, 3)

	for _, domain := range domainPriority {
		if domain == primaryDomain {
			continue
		}
		collection := r.collectionFor(r.collapseAlias(domain))
		if seen[collection] {
			continue
		}
		seen[collection] = true
		chain = append(chain, collection)
		if len(chain) == 2 {
			break
		}
	}

	general := r.generalCollection()
	if !seen[general] {
		chain = append(chain, general)
	}

	if len(chain) > 3 {
		chain = chain[:3]
	}
	return chain
}
