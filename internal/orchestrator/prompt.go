package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/contextd/internal/intent"
	"github.com/fyrsmithlabs/contextd/internal/language"
	"github.com/fyrsmithlabs/contextd/internal/memory"
)

// maxPromptTurns bounds how much conversation history is folded into the
// system prompt. This is a prompt-context budget distinct from
// internal/memory's MaxTurns storage window: the store may keep 200 turns,
// but only the most recent handful are worth spending context tokens on.
const maxPromptTurns = 20

// basePrompts holds the tier-specific directive prepended to every system
// prompt, per spec.md 4.H's model-tiering description.
var basePrompts = map[intent.Tier]string{
	intent.Fast: "You are a fast-response assistant for Indonesian visa, tax, legal, and business questions. " +
		"Keep answers short. Do not use tools for greetings or small talk.",
	intent.Pro: "You are an advisory assistant for Indonesian visa, tax, legal, and business questions. " +
		"Prefer using vector_search to ground factual claims. Present procedures, costs, and comparisons as " +
		"tables or checklists where appropriate.",
	intent.DeepThink: "You are a senior advisory assistant for Indonesian visa, tax, legal, and business questions, " +
		"specializing in strategy, risk, and comparative analysis. Reason step by step through trade-offs before " +
		"answering, and be explicit about assumptions and risks.",
}

// buildSystemPrompt assembles the system prompt for tier: the tier's base
// directive, the Communication Analyzer's signals about the query, and the
// known facts slot-filled from conversation history.
func buildSystemPrompt(tier intent.Tier, query string, history []memory.Turn) string {
	var b strings.Builder
	b.WriteString(basePrompts[tier])
	if basePrompts[tier] == "" {
		b.WriteString(basePrompts[intent.Pro])
	}

	lang := language.DetectLanguage(query)
	if lang != language.Unknown {
		fmt.Fprintf(&b, "\n\nRespond in the same language as the user's question (detected: %s).", lang)
	}
	if language.IsProcedural(query) {
		b.WriteString("\n\nThe user is asking for a step-by-step procedure; structure the answer as ordered steps.")
	}
	if language.HasEmotionalContent(query) {
		b.WriteString("\n\nThe user's message carries urgency or distress; acknowledge it briefly before the factual answer.")
	}

	facts := extractKnownFacts(history)
	if len(facts) > 0 {
		b.WriteString("\n\nKnown facts about the user from earlier turns:")
		for slot, value := range facts {
			fmt.Fprintf(&b, "\n- %s: %s", slot, value)
		}
	}

	return b.String()
}

// slotPatterns are the simple slot-filling rules that pull durable facts
// out of prior user turns, per spec.md 4.H's "known facts" memory
// injection. Each slot carries one pattern per supported language (this
// deployment's default Italian, plus English and Indonesian) since the
// Communication Analyzer lets users write in any of the three. Patterns
// are tried per turn; the first matching pattern per slot per turn wins,
// later turns overriding earlier ones (most recent statement is likely the
// current truth).
var slotPatterns = map[string][]*regexp.Regexp{
	"name": {
		regexp.MustCompile(`(?i)\bmy name is ([a-z ,.'-]+)`),
		regexp.MustCompile(`(?i)\bmi chiamo ([a-zà-ü ,.'-]+)`),
		regexp.MustCompile(`(?i)\bil mio nome è ([a-zà-ü ,.'-]+)`),
		regexp.MustCompile(`(?i)\bnama saya ([a-z ,.'-]+)`),
	},
	"city": {
		regexp.MustCompile(`(?i)\bi(?:'m| am)? (?:live|living|based) in ([a-z ,.'-]+)`),
		regexp.MustCompile(`(?i)\b(?:vivo|abito) a ([a-zà-ü ,.'-]+)`),
		regexp.MustCompile(`(?i)\bsaya tinggal di ([a-z ,.'-]+)`),
	},
	"profession": {
		regexp.MustCompile(`(?i)\bi(?:'m| am) an? ([a-z ,.'-]+?)(?:\.|,|$)`),
		regexp.MustCompile(`(?i)\bsono un[ao]? ([a-zà-ü ,.'-]+?)(?:\.|,|$)`),
		regexp.MustCompile(`(?i)\bsaya (?:adalah )?seorang ([a-z ,.'-]+?)(?:\.|,|$)`),
	},
	"budget": {
		regexp.MustCompile(`(?i)\b(?:my budget is|budget of) ([a-z0-9 ,.$-]+)`),
		regexp.MustCompile(`(?i)\b(?:il mio budget è|budget di) ([a-z0-9à-ü ,.€$-]+)`),
		regexp.MustCompile(`(?i)\b(?:anggaran saya|budget saya)(?: adalah| sebesar)? ([a-z0-9 ,.$-]+)`),
	},
}

// extractKnownFacts scans the user turns in history (already filtered to
// remove prior error stubs by the caller) for slot-fillable facts.
func extractKnownFacts(history []memory.Turn) map[string]string {
	facts := make(map[string]string)
	for _, turn := range history {
		if turn.Role != memory.RoleUser {
			continue
		}
		for slot, patterns := range slotPatterns {
			for _, pattern := range patterns {
				if m := pattern.FindStringSubmatch(turn.Content); m != nil {
					facts[slot] = strings.TrimSpace(m[1])
					break
				}
			}
		}
	}
	return facts
}

// recentNonErrorTurns truncates history to the most recent maxPromptTurns
// turns, excluding assistant turns that look like error stubs (the
// orchestrator's own "I encountered an error" fallbacks), per spec.md's
// "conversation history ... filtered to remove prior error stubs".
func recentNonErrorTurns(history []memory.Turn) []memory.Turn {
	filtered := make([]memory.Turn, 0, len(history))
	for _, turn := range history {
		if turn.Role == memory.RoleAssistant && looksLikeErrorStub(turn.Content) {
			continue
		}
		filtered = append(filtered, turn)
	}

	if len(filtered) > maxPromptTurns {
		filtered = filtered[len(filtered)-maxPromptTurns:]
	}
	return filtered
}

var errorStubPattern = regexp.MustCompile(`(?i)^(i'm sorry, i (encountered|ran into) an error|something went wrong)`)

func looksLikeErrorStub(content string) bool {
	return errorStubPattern.MatchString(strings.TrimSpace(content))
}
