// Package selector picks the ordered batch of work items a run will process.
// Selection is a pure function of the project configuration and its backlog.
package selector

import (
	"sort"
	"strings"

	"autopress/internal/core"
)

// Select filters a project's idea backlog by the configured priority and
// category filters, orders the survivors (priority rank ascending, then
// desirability score descending, then search volume descending), and truncates
// the result to the project's per-run quota.
func Select(p core.Project, backlog []core.WorkItem) []core.WorkItem {
	selected := make([]core.WorkItem, 0, len(backlog))
	for _, item := range backlog {
		if item.Status != core.ItemIdea {
			continue
		}
		if !p.PriorityFilter.Allows(item.Priority) {
			continue
		}
		if !matchesCategory(p.CategoryFilter, item) {
			continue
		}
		selected = append(selected, item)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.SearchVolume > b.SearchVolume
	})

	quota := p.Quota
	if quota < 1 {
		quota = 1
	}
	if len(selected) > quota {
		selected = selected[:quota]
	}
	return selected
}

// matchesCategory admits an item when the filter is "all" (or unset), when the
// item's category equals the filter, or when the item's topic mentions the
// filter text case-insensitively.
func matchesCategory(filter string, item core.WorkItem) bool {
	if filter == "" || strings.EqualFold(filter, "all") {
		return true
	}
	if strings.EqualFold(item.Category, filter) {
		return true
	}
	return strings.Contains(strings.ToLower(item.Topic), strings.ToLower(filter))
}
