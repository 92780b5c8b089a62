// Package selection turns a relevance-ranked pool of classified stories into a
// bounded daily selection that guarantees minimum topic coverage.
package selection

import (
	"sort"

	"github.com/TobiSchelling/TechBrief/internal/database"
)

// Requirement asks for at least Min stories carrying Topic.
type Requirement struct {
	Topic string
	Min   int
}

// Options bounds the selection size. MinSize is advisory.
type Options struct {
	MaxSize int
	MinSize int
}

// Selection is the ordered outcome of Select.
type Selection struct {
	Stories     []database.Story
	UnderTarget bool     // fewer than MinSize stories were available
	Unmet       []string // required topics the final selection does not satisfy
}

// IDs returns the story identifiers in selection order.
func (s Selection) IDs() []string {
	ids := make([]string, len(s.Stories))
	for i, st := range s.Stories {
		ids[i] = st.ID
	}
	return ids
}

// Select runs the coverage pass and the fill pass over stories, which must
// already be sorted by descending relevance. Each story is credited to at most
// one requirement, the first still short in reqs order. The input is not
// modified.
func Select(stories []database.Story, reqs []Requirement, opts Options) Selection {
	selected := make([]database.Story, 0, opts.MaxSize)
	chosen := make(map[string]struct{}, opts.MaxSize)
	counts := make(map[string]int, len(reqs))

	for _, st := range stories {
		if allMet(reqs, counts) {
			break
		}
		for _, req := range reqs {
			if counts[req.Topic] >= req.Min || !st.HasTopic(req.Topic) {
				continue
			}
			if _, ok := chosen[st.ID]; !ok {
				selected = append(selected, st)
				chosen[st.ID] = struct{}{}
			}
			counts[req.Topic]++
			break
		}
	}

	for _, st := range stories {
		if len(selected) >= opts.MaxSize {
			break
		}
		if _, ok := chosen[st.ID]; ok {
			continue
		}
		selected = append(selected, st)
		chosen[st.ID] = struct{}{}
	}

	if opts.MaxSize > 0 && len(selected) > opts.MaxSize {
		selected = selected[:opts.MaxSize]
	}

	return Selection{
		Stories:     selected,
		UnderTarget: len(selected) < opts.MinSize,
		Unmet:       unmet(selected, reqs),
	}
}

func allMet(reqs []Requirement, counts map[string]int) bool {
	for _, req := range reqs {
		if counts[req.Topic] < req.Min {
			return false
		}
	}
	return true
}

func unmet(selected []database.Story, reqs []Requirement) []string {
	var missing []string
	for _, req := range reqs {
		n := 0
		for _, st := range selected {
			if st.HasTopic(req.Topic) {
				n++
			}
		}
		if n < req.Min {
			missing = append(missing, req.Topic)
		}
	}
	return missing
}

// TopicCount is one row of a topic distribution.
type TopicCount struct {
	Topic string
	Count int
}

// TopicDistribution counts topic tags across stories, most frequent first.
// Ties keep first-seen order.
func TopicDistribution(stories []database.Story) []TopicCount {
	var dist []TopicCount
	index := make(map[string]int)
	for _, st := range stories {
		for _, topic := range st.Topics {
			i, ok := index[topic]
			if !ok {
				i = len(dist)
				index[topic] = i
				dist = append(dist, TopicCount{Topic: topic})
			}
			dist[i].Count++
		}
	}
	sort.SliceStable(dist, func(i, j int) bool { return dist[i].Count > dist[j].Count })
	return dist
}
