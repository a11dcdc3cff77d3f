// Package aggregate implements the group-by, lookup and ranking operations the
// reconciliation needs over in-memory rows.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Group is the running sum and row count of one key
type Group struct {
	Key   string
	Sum   decimal.Decimal
	Count int
}

// Mean returns Sum / Count, or zero for an empty group
func (g Group) Mean() decimal.Decimal {
	if g.Count == 0 {
		return decimal.Zero
	}
	return g.Sum.Div(decimal.NewFromInt(int64(g.Count)))
}

// Groups keeps groups in the order their key was first seen
type Groups struct {
	groups []Group
	index  map[string]int
}

// NewGroups creates an empty group set
func NewGroups() *Groups {
	return &Groups{index: make(map[string]int)}
}

// Add folds one value into the group of key
func (g *Groups) Add(key string, value decimal.Decimal) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.groups)
		g.index[key] = i
		g.groups = append(g.groups, Group{Key: key, Sum: decimal.Zero})
	}
	g.groups[i].Sum = g.groups[i].Sum.Add(value)
	g.groups[i].Count++
}

// Lookup returns the group for key
func (g *Groups) Lookup(key string) (Group, bool) {
	i, ok := g.index[key]
	if !ok {
		return Group{}, false
	}
	return g.groups[i], true
}

// SumOr returns the group's sum, or fallback when the key has no rows
func (g *Groups) SumOr(key string, fallback decimal.Decimal) decimal.Decimal {
	if group, ok := g.Lookup(key); ok {
		return group.Sum
	}
	return fallback
}

// All returns a copy of the groups in first-seen order
func (g *Groups) All() []Group {
	out := make([]Group, len(g.groups))
	copy(out, g.groups)
	return out
}

// SumBy groups rows by key and sums value per group
func SumBy[T any](rows []T, key func(T) string, value func(T) decimal.Decimal) *Groups {
	groups := NewGroups()
	for _, row := range rows {
		groups.Add(key(row), value(row))
	}
	return groups
}

// SortByTotalDesc returns the groups ordered by Sum descending, ties broken
// by Key ascending. The input is not modified.
func SortByTotalDesc(groups []Group) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Sum.Cmp(sorted[j].Sum); c != 0 {
			return c > 0
		}
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// Top returns at most n leading groups
func Top(groups []Group, n int) []Group {
	if n < 0 {
		n = 0
	}
	if len(groups) <= n {
		return groups
	}
	return groups[:n]
}
