package catalog

import (
	"sort"

	"thepup/internal/models/domain"
)

// NewsFilter: параметры ленты новостей.
type NewsFilter struct {
	Category      string
	Tag           string
	Query         string
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// FilterNews фильтрует и сортирует новости: свежие сверху.
func FilterNews(items []domain.News, f NewsFilter) []domain.News {
	result := make([]domain.News, 0, len(items))
	for _, n := range items {
		if !f.IncludeDrafts && n.Status != domain.StatusPublished {
			continue
		}
		if !matchesCategory(n.Category, f.Category) {
			continue
		}
		if !HasTag(n.Tags, f.Tag) {
			continue
		}
		if !matchesQuery(f.Query, n.Title, n.Summary, n.Tags) {
			continue
		}
		result = append(result, n)
	}

	sortNewsByDate(result)

	return Page(result, f.Offset, f.Limit)
}

// RelatedNews подбирает до n опубликованных новостей той же категории.
// Если таких не хватает, добирает свежими новостями из других категорий.
func RelatedNews(items []domain.News, current domain.News, n int) []domain.News {
	if n <= 0 {
		return []domain.News{}
	}

	var same, other []domain.News
	for _, it := range items {
		if it.ID == current.ID || it.Status != domain.StatusPublished {
			continue
		}
		if matchesCategory(it.Category, current.Category) && current.Category != "" {
			same = append(same, it)
		} else {
			other = append(other, it)
		}
	}

	sortNewsByDate(same)
	sortNewsByDate(other)

	result := append(same, other...)
	if len(result) > n {
		result = result[:n]
	}
	if result == nil {
		result = []domain.News{}
	}

	return result
}

func sortNewsByDate(items []domain.News) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortTime().After(items[j].SortTime())
	})
}
