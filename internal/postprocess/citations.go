package postprocess

import (
	"fmt"
	"sort"
	"strings"
)

// snippetLen bounds how much of a source's text is quoted in the footer.
const snippetLen = 160

// buildCitations scans the tool trace for vector_search results and emits
// up to maxCitations {title, snippet, link} entries, highest-scoring first.
// The draft is returned with one [n] marker per citation appended at the
// end of the answer in source order, followed by a "Sources" footer;
// markers are not placed next to the sentences that use each source.
func buildCitations(draft string, toolTrace []ToolResult, maxCitations int) (string, []Citation) {
	var hits []SearchHit
	for _, tr := range toolTrace {
		if tr.Tool != "vector_search" {
			continue
		}
		hits = append(hits, tr.Results...)
	}
	if len(hits) == 0 {
		return draft, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > maxCitations {
		hits = hits[:maxCitations]
	}

	citations := make([]Citation, len(hits))
	var markers strings.Builder
	var footer strings.Builder
	footer.WriteString("\n\nSources:\n")

	for i, h := range hits {
		title := titleFromMetadata(h.Metadata, h.SourceCollection)
		link := linkFromMetadata(h.Metadata)
		snippet := h.Text
		if len(snippet) > snippetLen {
			snippet = snippet[:snippetLen] + "..."
		}

		citations[i] = Citation{Index: i + 1, Title: title, Snippet: snippet, Link: link}
		fmt.Fprintf(&footer, "[%d] %s — %s\n", i+1, title, snippet)
		fmt.Fprintf(&markers, "[%d]", i+1)
	}

	return strings.TrimRight(draft, "\n") + " " + markers.String() + footer.String(), citations
}

func titleFromMetadata(metadata map[string]interface{}, fallback string) string {
	if metadata != nil {
		if v, ok := metadata["title"].(string); ok && v != "" {
			return v
		}
	}
	if fallback != "" {
		return fallback
	}
	return "source"
}

func linkFromMetadata(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata["link"].(string); ok {
		return v
	}
	if v, ok := metadata["url"].(string); ok {
		return v
	}
	return ""
}
