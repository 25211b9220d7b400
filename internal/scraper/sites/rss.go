package sites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	// maxFeedItems: сколько свежих записей ленты берём за один запуск.
	maxFeedItems     = 30
	extractorTimeout = 30 * time.Second
)

// ScrapeRSS загружает RSS/Atom-ленту и превращает записи в черновики новостей.
func ScrapeRSS(ctx context.Context, feedURL string, shutdownChan <-chan struct{}) (Result, error) {
	select {
	case <-shutdownChan:
		return Result{}, fmt.Errorf("shutdown")
	default:
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch feed: %w", err)
	}

	return Result{News: FeedToNews(feed, maxFeedItems)}, nil
}

// ScrapeRSSFullText: как ScrapeRSS, но для лент с анонсами: полный текст
// каждой статьи вытаскивается со страницы через readability.
// Если страницу разобрать не удалось, остаётся текст из ленты.
func ScrapeRSSFullText(ctx context.Context, feedURL string, shutdownChan <-chan struct{}) (Result, error) {
	result, err := ScrapeRSS(ctx, feedURL, shutdownChan)
	if err != nil {
		return result, err
	}

	failed := 0
	for i, n := range result.News {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-shutdownChan:
			return result, fmt.Errorf("shutdown")
		default:
		}

		article, err := readability.FromURL(n.SourceURL, extractorTimeout)
		if err != nil {
			failed++
			continue
		}
		result.News[i] = MergeReadable(n, article)
	}

	if failed > 0 && failed == len(result.News) {
		return result, fmt.Errorf("readability extraction failed for all %d items", failed)
	}
	return result, nil
}

// MergeReadable дополняет черновик новости извлечённой статьёй.
// Заполненные из ленты поля, кроме текста, не перезаписываются.
func MergeReadable(n domain.News, article readability.Article) domain.News {
	if strings.TrimSpace(article.Content) != "" {
		n.Content = article.Content
	}
	if n.Summary == "" {
		n.Summary = cleanText(article.Excerpt)
	}
	if n.ImageURL == "" {
		n.ImageURL = article.Image
	}
	if n.Author == "" {
		n.Author = cleanText(article.Byline)
	}
	return n
}

// FeedToNews конвертирует записи ленты в черновики новостей.
// Записи без ссылки или заголовка пропускаются.
func FeedToNews(feed *gofeed.Feed, maxCount int) []domain.News {
	count := min(len(feed.Items), maxCount)
	news := make([]domain.News, 0, count)

	for _, item := range feed.Items[:count] {
		if item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}

		n := domain.News{
			Title:     cleanText(item.Title),
			SourceURL: item.Link,
			Status:    domain.StatusDraft,
		}

		// Parse published date
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			n.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			n.PublishedAt = &t
		}

		if item.Author != nil {
			n.Author = item.Author.Name
		} else if feed.Title != "" {
			n.Author = feed.Title
		}

		n.Content = item.Content
		if n.Content == "" {
			n.Content = item.Description
		}
		n.Summary = htmlToText(item.Description)
		if n.Summary == "" {
			n.Summary = htmlToText(item.Content)
		}

		if len(item.Categories) > 0 {
			n.Category = strings.ToLower(strings.TrimSpace(item.Categories[0]))
			n.Tags = catalog.JoinTags(item.Categories)
		}

		if item.Image != nil {
			n.ImageURL = item.Image.URL
		} else {
			for _, enc := range item.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					n.ImageURL = enc.URL
					break
				}
			}
		}

		news = append(news, n)
	}

	return news
}
