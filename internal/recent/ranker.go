// Package recent keeps track of recently visited clusters and ranks the
// quick access list of the dashboard home view.
package recent

import (
	"github.com/celikgo/autoz-dashboard/internal/cluster"
)

// Rank picks at most maxCount clusters for quick access.
//
// When there are no more clusters than maxCount, all of them are returned in
// configuration order. Otherwise the first maxCount distinct recent names that
// still resolve come first, in recency order, and the rest is filled from the
// configured clusters in configuration order.
func Rank(clusters *cluster.Set, recentNames []string, maxCount int) []cluster.Cluster {
	if maxCount <= 0 {
		return []cluster.Cluster{}
	}
	if clusters.Len() <= maxCount {
		return clusters.List()
	}

	ranked := make([]cluster.Cluster, 0, maxCount)
	selected := make(map[string]bool, maxCount)

	// Stale names still use up one of the maxCount recent slots
	for _, name := range dedupe(recentNames, maxCount) {
		if c, ok := clusters.Get(name); ok {
			ranked = append(ranked, c)
			selected[name] = true
		}
	}

	for _, c := range clusters.List() {
		if len(ranked) >= maxCount {
			break
		}
		if !selected[c.Name] {
			ranked = append(ranked, c)
			selected[c.Name] = true
		}
	}

	return ranked
}

// dedupe returns up to limit names, keeping the first occurrence of each
func dedupe(names []string, limit int) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, limit)
	for _, name := range names {
		if len(out) == limit {
			break
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
