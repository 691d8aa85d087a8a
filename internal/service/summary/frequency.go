package summary

import (
	"sort"
	"strings"

	"github.com/sehatline/sehat_backend/internal/model"
)

// topK is how many frequency buckets the summary keeps per facet.
const topK = 5

// TopTerms counts occurrences and keeps the k most frequent. Terms must be
// ordered most-recent-first; ties on count break toward the more recently
// seen term so a fresh complaint outranks a stale one with the same count.
func TopTerms(terms []string, k int) []model.FreqEntry {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, raw := range terms {
		t := strings.ToLower(strings.TrimSpace(raw))
		if t == "" {
			continue
		}
		if _, ok := counts[t]; !ok {
			firstSeen[t] = i
		}
		counts[t]++
	}

	entries := make([]model.FreqEntry, 0, len(counts))
	for term, count := range counts {
		entries = append(entries, model.FreqEntry{Term: term, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return firstSeen[entries[i].Term] < firstSeen[entries[j].Term]
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// SplitSymptoms breaks the free-text symptom field into terms. Consultations
// store symptoms as a comma-separated list.
func SplitSymptoms(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
