package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/contextd/internal/vectorstore"
)

// contentHash fingerprints a result's content for dedupe purposes, trimming
// whitespace and lowercasing so near-identical chunks retrieved from two
// collections collapse to one candidate.
func contentHash(content string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(content))))
	return hex.EncodeToString(h[:])
}

// dedupe collapses results sharing a content hash, keeping the
// highest-scoring occurrence of each. Order of first appearance among
// distinct hashes is preserved, which anchors the stable-insertion-order
// tie-break used later in resolveConflicts.
func dedupe(results []vectorstore.SearchResult) []vectorstore.SearchResult {
	best := make(map[string]vectorstore.SearchResult, len(results))
	order := make([]string, 0, len(results))

	for _, r := range results {
		key := contentHash(r.Content)
		existing, ok := best[key]
		if !ok {
			best[key] = r
			order = append(order, key)
			continue
		}
		if r.Score > existing.Score {
			best[key] = r
		}
	}

	out := make([]vectorstore.SearchResult, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// conflictGroupKeys lists the metadata attributes that identify results as
// describing the same underlying fact (e.g. two regulations both quoting a
// capital minimum) and therefore candidates for conflict resolution rather
// than independent citations.
var conflictGroupKeys = []string{"regulation_number", "capital_minimum", "fact_id"}

// resolveConflicts groups results that share a conflict-group attribute and,
// within each group, reorders members so the winner of the tie-break order
// (latest effective_date, then highest authority tier, then highest score,
// then stable insertion order) ranks first. Losing members are NOT dropped —
// they remain in the result list, just ranked below the winner, per the
// conflict-resolution contract. Results with no conflict-group attribute
// keep their original position.
func resolveConflicts(results []vectorstore.SearchResult) []vectorstore.SearchResult {
	out := append([]vectorstore.SearchResult(nil), results...)

	groups := make(map[string][]int)
	for i, r := range out {
		if key, ok := groupKeyFor(r); ok {
			groups[key] = append(groups[key], i)
		}
	}

	type candidate struct {
		result  vectorstore.SearchResult
		origIdx int
	}

	for _, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}

		members := make([]candidate, len(idxs))
		for j, i := range idxs {
			members[j] = candidate{result: out[i], origIdx: i}
		}

		sort.SliceStable(members, func(a, b int) bool {
			return beats(members[a].result, members[b].result, members[a].origIdx, members[b].origIdx)
		})

		for j, pos := range idxs {
			out[pos] = members[j].result
		}
	}

	return out
}

func groupKeyFor(r vectorstore.SearchResult) (string, bool) {
	for _, attr := range conflictGroupKeys {
		v, ok := r.Metadata[attr]
		if !ok {
			continue
		}
		return attr + ":" + toString(v), true
	}
	return "", false
}

// beats reports whether candidate (at index ci) outranks incumbent (at index
// ii) under the conflict tie-break order. Lower index wins ties at every
// stage, preserving stable insertion order as the final tie-break.
func beats(candidate, incumbent vectorstore.SearchResult, ci, ii int) bool {
	cDate, cOK := effectiveDate(candidate)
	iDate, iOK := effectiveDate(incumbent)
	switch {
	case cOK && iOK && !cDate.Equal(iDate):
		return cDate.After(iDate)
	case cOK && !iOK:
		return true
	case !cOK && iOK:
		return false
	}

	cTier := authorityTier(candidate)
	iTier := authorityTier(incumbent)
	if cTier != iTier {
		return cTier > iTier
	}

	if candidate.Score != incumbent.Score {
		return candidate.Score > incumbent.Score
	}

	return ci < ii
}

func effectiveDate(r vectorstore.SearchResult) (time.Time, bool) {
	v, ok := r.Metadata["effective_date"]
	if !ok {
		return time.Time{}, false
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// authorityTier maps a result's source authority to a comparable rank.
// Higher ranks win. Unknown or absent tiers rank lowest.
func authorityTier(r vectorstore.SearchResult) int {
	v, ok := r.Metadata["authority_tier"]
	if !ok {
		return 0
	}
	s, ok := v.(string)
	if !ok {
		return 0
	}
	switch strings.ToLower(s) {
	case "primary_law", "statute":
		return 3
	case "regulation", "ministerial_decree":
		return 2
	case "official_guidance":
		return 1
	default:
		return 0
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
