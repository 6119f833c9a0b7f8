// Package language implements the Communication Analyzer: lightweight,
// dependency-free signals about a user query's language and tone, used by
// the orchestrator to pick a response register and by the post-processor to
// choose the answer's language, reformat procedural answers, and prepend an
// empathy sentence to distressed queries.
package language

import (
	"regexp"
	"strings"
)

// Code identifies a supported query language.
type Code string

const (
	Italian    Code = "it"
	English    Code = "en"
	Indonesian Code = "id"
	Unknown    Code = "unknown"
)

// markerTable holds the stopword-ish tokens that tip DetectLanguage toward a
// given language. Tokens are matched as whole words, case-insensitively.
var markerTable = map[Code][]string{
	Italian: {
		"il", "lo", "la", "gli", "le", "di", "che", "è", "sono", "per",
		"come", "posso", "devo", "quanto", "costa", "visto", "fattura",
		"grazie", "perché", "quando",
	},
	English: {
		"the", "is", "are", "how", "can", "do", "i", "what", "need",
		"visa", "tax", "invoice", "please", "thanks", "when", "cost",
	},
	Indonesian: {
		"yang", "dan", "saya", "bagaimana", "berapa", "bisa", "perlu",
		"pajak", "visa", "terima", "kasih", "kapan", "biaya", "untuk",
	},
}

var wordPattern = regexp.MustCompile(`[\p{L}]+`)

// defaultLanguage is this deployment's working language. A query only moves
// away from it when another language's marker count clears both the
// override threshold and the default's own score — anything short of that
// (no markers, a single stray word, a tie) defaults to Italian.
const defaultLanguage = Italian

// overrideThreshold is the minimum marker count another language needs
// before it can displace the default.
const overrideThreshold = 2

// DetectLanguage scores a query against each language's marker table.
// Defaults to Italian; another language only wins if its marker count is
// at least overrideThreshold and strictly higher than Italian's own count.
// Mixed or ambiguous content (ties, below-threshold signal) stays Italian.
func DetectLanguage(text string) Code {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	present := make(map[string]bool, len(words))
	for _, w := range words {
		present[w] = true
	}

	scores := map[Code]int{Italian: 0, English: 0, Indonesian: 0}
	for lang, markers := range markerTable {
		for _, m := range markers {
			if present[m] {
				scores[lang]++
			}
		}
	}

	best := defaultLanguage
	bestScore := scores[defaultLanguage]
	// Deterministic iteration order; only a strict, above-threshold winner
	// over the default's own score displaces it.
	for _, lang := range []Code{English, Indonesian} {
		if scores[lang] >= overrideThreshold && scores[lang] > bestScore {
			bestScore = scores[lang]
			best = lang
		}
	}
	return best
}

// proceduralMarkers are verbs/phrases that indicate the user wants a
// step-by-step process rather than a factual lookup.
var proceduralMarkers = []string{
	"how do i", "how to", "step by step", "what steps", "walk me through",
	"bagaimana cara", "langkah", "come faccio", "come posso", "procedura",
	"process for", "procedure for",
}

// IsProcedural reports whether the query is asking for a procedure/workflow
// (e.g. "how do I renew my KITAS") as opposed to a factual lookup (e.g.
// "what is the KITAS fee").
func IsProcedural(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range proceduralMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// emotionalMarkers signal frustration, urgency, or distress in the query,
// used to soften the post-processor's tone and avoid bare legalese.
var emotionalMarkers = []string{
	"urgent", "asap", "frustrated", "angry", "worried", "scared", "desperate",
	"please help", "stuck", "stressed", "panik", "khawatir", "tolong",
	"preoccupato", "urgente", "disperato",
}

// HasEmotionalContent reports whether the query carries urgency or distress
// markers worth acknowledging before the factual answer.
func HasEmotionalContent(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range emotionalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if strings.Count(text, "!") >= 2 {
		return true
	}
	return false
}
