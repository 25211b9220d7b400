package sites

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"thepup/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/geziyor/geziyor"
	"github.com/geziyor/geziyor/client"
)

var timeRe = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*([aApP][mM])?`)

// NewMEC возвращает скрапер для сайтов на Modern Events Calendar (WordPress).
// Даты на странице трактуются в часовом поясе loc.
func NewMEC(loc *time.Location) ScrapeFunc {
	if loc == nil {
		loc = time.UTC
	}

	return func(ctx context.Context, baseURL string, shutdownChan <-chan struct{}) (Result, error) {
		var result Result
		var eventLinks []string
		var mu sync.Mutex

		// 1. Собираем ссылки на все события
		collectLinksGez := geziyor.NewGeziyor(&geziyor.Options{
			StartURLs:   []string{baseURL},
			LogDisabled: true,
			ParseFunc: func(g *geziyor.Geziyor, r *client.Response) {
				links := ParseMECListing(r.HTMLDoc, r.Request.URL)
				mu.Lock()
				eventLinks = append(eventLinks, links...)
				mu.Unlock()
			},
		})
		collectLinksGez.Start()
		eventLinks = uniqueStrings(eventLinks)

		// 2. Для каждой ссылки собираем детали
		for _, link := range eventLinks {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-shutdownChan:
				return result, fmt.Errorf("shutdown")
			default:
			}

			var event domain.Event
			var ok bool

			gez := geziyor.NewGeziyor(&geziyor.Options{
				StartURLs:   []string{link},
				LogDisabled: true,
				ParseFunc: func(g *geziyor.Geziyor, r *client.Response) {
					event, ok = ParseMECEvent(r.HTMLDoc, link, loc)
				},
			})
			gez.Start()

			if ok {
				result.Events = append(result.Events, event)
			}
		}

		return result, nil
	}
}

// ParseMECListing возвращает абсолютные ссылки на страницы событий из списка.
func ParseMECListing(doc *goquery.Document, base *url.URL) []string {
	var links []string
	doc.Find("article.mec-event-article a.mec-color-hover, .mec-event-title a").Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if base != nil {
			abs, err := base.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			href = abs.String()
		}
		links = append(links, href)
	})
	return uniqueStrings(links)
}

// ParseMECEvent разбирает страницу события. ok == false, если на странице нет
// названия или даты начала.
func ParseMECEvent(doc *goquery.Document, link string, loc *time.Location) (domain.Event, bool) {
	event := domain.Event{SourceURL: link}

	// Название
	name := doc.Find("h1.mec-single-title").First().Text()
	if strings.TrimSpace(name) == "" {
		name = doc.Find(".mec-single-event-title").First().Text()
	}
	event.Title = cleanText(name)

	// Описание
	descSelection := doc.Find(".mec-single-event-description").First().Clone()
	descSelection.Find("script, style").Remove()
	event.Description = cleanText(descSelection.Text())

	// Фото
	if src, ok := doc.Find(".mec-events-event-image img").First().Attr("src"); ok {
		event.ImageURL = src
	}

	event.Category = cleanText(doc.Find(".mec-single-event-category dd a").First().Text())
	event.Venue = cleanText(doc.Find(".mec-single-event-location .author").First().Text())
	event.Address = cleanText(doc.Find(".mec-single-event-location .mec-address").First().Text())
	event.Organizer = cleanText(doc.Find(".mec-single-event-organizer .mec-organizer h6").First().Text())

	// Ссылка на покупку
	if buyLink, ok := doc.Find(".mec-booking-button").First().Attr("href"); ok {
		event.TicketURL = buyLink
	}

	// Координаты карты, если тема их выводит
	if sel := doc.Find("[data-lat][data-lng]").First(); sel.Length() > 0 {
		lat, errLat := strconv.ParseFloat(sel.AttrOr("data-lat", ""), 64)
		lng, errLng := strconv.ParseFloat(sel.AttrOr("data-lng", ""), 64)
		if errLat == nil && errLng == nil && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
			event.Latitude = &lat
			event.Longitude = &lng
		}
	}

	// Дата и время
	startStr := cleanText(doc.Find(".mec-single-event-date .mec-start-date-label").First().Text())
	endStr := cleanText(doc.Find(".mec-single-event-date .mec-end-date-label").First().Text())
	timeStr := cleanText(doc.Find(".mec-single-event-time .mec-events-abbr").First().Text())

	start, err := parseMECDate(startStr, loc)
	if err != nil || event.Title == "" {
		return domain.Event{}, false
	}

	times := timeRe.FindAllStringSubmatch(timeStr, 2)
	event.StartDate = withClock(start, times, 0)

	end := start
	if endStr != "" {
		if d, err := parseMECDate(strings.TrimLeft(endStr, "- "), loc); err == nil {
			end = d
		}
	}
	if len(times) > 1 || !end.Equal(start) {
		e := withClock(end, times, 1)
		if e.After(event.StartDate) {
			event.EndDate = &e
		}
	}

	event.Status = domain.StatusDraft

	return event, true
}

func parseMECDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"02 Jan 2006", "2 Jan 2006", "Jan 02 2006", "January 2, 2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format: %q", s)
}

// withClock выставляет время из times[i], если оно есть.
func withClock(day time.Time, times [][]string, i int) time.Time {
	if i >= len(times) {
		return day
	}
	hour, _ := strconv.Atoi(times[i][1])
	minute, _ := strconv.Atoi(times[i][2])
	switch strings.ToLower(times[i][3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
