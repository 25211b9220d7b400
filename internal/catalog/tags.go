package catalog

import (
	"sort"
	"strings"
)

// SplitTags разбирает теги из строки через запятую.
// Пустые значения и ведущие '#' отбрасываются, дубликаты (без учёта регистра) удаляются.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var tags []string
	for _, raw := range strings.Split(s, ",") {
		tag := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	return tags
}

// JoinTags собирает теги обратно в строку через запятую.
func JoinTags(tags []string) string {
	return strings.Join(SplitTags(strings.Join(tags, ",")), ", ")
}

// NormalizeTags приводит строку тегов к каноническому виду.
func NormalizeTags(s string) string {
	return strings.Join(SplitTags(s), ", ")
}

// HasTag проверяет наличие тега без учёта регистра.
func HasTag(tags, tag string) bool {
	tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return true
	}
	for _, t := range SplitTags(tags) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Categories возвращает отсортированный список уникальных категорий.
func Categories(values []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, v)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i]) < strings.ToLower(result[j])
	})

	return result
}

func matchesCategory(category, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(category), want)
}

// matchesQuery: все слова запроса должны встречаться хотя бы в одном из полей.
func matchesQuery(query string, fields ...string) bool {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return true
	}

	text := strings.ToLower(strings.Join(fields, "\n"))
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// Page возвращает срез items[offset:offset+limit]; при limit <= 0 без ограничения.
func Page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
