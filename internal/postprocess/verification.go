package postprocess

// authorityMetadataKeys are payload fields that mark a document as
// domain-authoritative (a cited regulation or statute) rather than a
// generic FAQ entry.
var authorityMetadataKeys = []string{"regulation_number", "law_id", "kbli_code"}

// computeVerificationScore derives a 0-100 score per spec.md §3: distinct
// source documents, aggregate top-k similarity, and presence of
// domain-authoritative metadata.
func computeVerificationScore(hits []SearchHit) int {
	if len(hits) == 0 {
		return 0
	}

	distinctDocsScore := len(hits)
	if distinctDocsScore > 4 {
		distinctDocsScore = 4
	}
	distinctDocsScore *= 10 // up to 40

	var totalScore float32
	hasAuthority := false
	for _, h := range hits {
		totalScore += h.Score
		if hasAuthorityMetadata(h.Metadata) {
			hasAuthority = true
		}
	}
	avgScore := totalScore / float32(len(hits))
	similarityScore := int(avgScore * 40) // up to 40

	authorityBonus := 0
	if hasAuthority {
		authorityBonus = 20
	}

	total := distinctDocsScore + similarityScore + authorityBonus
	if total > 100 {
		total = 100
	}
	return total
}

func hasAuthorityMetadata(metadata map[string]interface{}) bool {
	for _, key := range authorityMetadataKeys {
		if v, ok := metadata[key]; ok && v != nil && v != "" {
			return true
		}
	}
	return false
}

// bucketConfidence maps a verification score to its confidence bucket per
// spec.md §3: >=80 High, 50-79 Medium, <50 Low.
func bucketConfidence(score int) Confidence {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
