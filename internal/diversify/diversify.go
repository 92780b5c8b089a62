// Package diversify bounds how many entries each origin promotes into
// classification and interleaves origins so no single feed dominates a batch.
package diversify

import (
	"sort"
)

// Options controls RoundRobin. A non-positive value disables that cap.
type Options struct {
	PerOrigin int
	Overall   int
}

// RoundRobin groups items by origin (groups ordered by first appearance),
// stable-sorts each group by trust descending, then takes one item per group
// per round. No group contributes more than PerOrigin items and the result is
// cut at Overall. The input slice is not modified.
func RoundRobin[T any](items []T, origin func(T) string, trust func(T) float64, opts Options) []T {
	var order []string
	groups := make(map[string][]T)
	for _, it := range items {
		key := origin(it)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], it)
	}

	longest := 0
	for _, key := range order {
		g := groups[key]
		sort.SliceStable(g, func(i, j int) bool { return trust(g[i]) > trust(g[j]) })
		if opts.PerOrigin > 0 && len(g) > opts.PerOrigin {
			g = g[:opts.PerOrigin]
			groups[key] = g
		}
		if len(g) > longest {
			longest = len(g)
		}
	}

	out := make([]T, 0, len(items))
	for round := 0; round < longest; round++ {
		for _, key := range order {
			g := groups[key]
			if round >= len(g) {
				continue
			}
			if opts.Overall > 0 && len(out) >= opts.Overall {
				return out
			}
			out = append(out, g[round])
		}
	}
	return out
}
