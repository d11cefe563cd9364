package topics

import "strings"

// SelectDistinct picks up to limit topics from ranked, skipping any topic
// whose top-5 terms overlap a chosen one by Jaccard similarity ≥ threshold or
// whose base label (text before "(") is already taken. When too few survive,
// skipped topics are backfilled, checking base labels only.
func SelectDistinct(ranked []Topic, limit int, threshold float64) []Topic {
	if limit <= 0 || len(ranked) == 0 {
		return nil
	}

	var selected, skipped []Topic
	for _, t := range ranked {
		words := toSet(t.Terms(5))
		if len(words) == 0 {
			continue
		}

		similar := false
		for _, chosen := range selected {
			if jaccard(words, toSet(chosen.Terms(5))) >= threshold {
				similar = true
				break
			}
		}
		if hasBase(selected, baseLabel(t.Label)) {
			similar = true
		}
		if similar {
			skipped = append(skipped, t)
			continue
		}

		selected = append(selected, t)
		if len(selected) >= limit {
			return selected
		}
	}

	for _, t := range skipped {
		if len(selected) >= limit {
			break
		}
		if hasBase(selected, baseLabel(t.Label)) {
			continue
		}
		selected = append(selected, t)
	}
	return selected
}

func baseLabel(label string) string {
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	return strings.ToLower(strings.TrimSpace(label))
}

func hasBase(topics []Topic, base string) bool {
	for _, t := range topics {
		if baseLabel(t.Label) == base {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
