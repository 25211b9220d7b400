package sites

import (
	"context"
	"strings"

	"thepup/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
)

// Result — то, что скрапер нашёл в источнике.
type Result struct {
	Events []domain.Event
	News   []domain.News
}

// ScrapeFunc — тип функции скрапера для конкретного вида источника.
// Принимает контекст и URL, возвращает найденные записи.
type ScrapeFunc func(ctx context.Context, url string, shutdownChan <-chan struct{}) (Result, error)

// cleanText схлопывает пробелы и переводы строк.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlToText вытаскивает текст из HTML-фрагмента.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return cleanText(fragment)
	}
	doc.Find("script, style").Remove()
	return cleanText(doc.Text())
}

// uniqueStrings удаляет дубликаты из slice строк
func uniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, v := range input {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
