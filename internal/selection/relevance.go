package selection

import "github.com/TobiSchelling/TechBrief/internal/database"

// MeetsThreshold reports whether a relevance score is kept at threshold.
func MeetsThreshold(score, threshold float64) bool {
	return score >= threshold
}

// FilterRelevant returns the stories scoring at or above threshold, in input order.
func FilterRelevant(stories []database.Story, threshold float64) []database.Story {
	kept := make([]database.Story, 0, len(stories))
	for _, st := range stories {
		if MeetsThreshold(st.RelevanceScore, threshold) {
			kept = append(kept, st)
		}
	}
	return kept
}
