package catalog

import (
	"sort"
	"strings"

	"thepup/internal/models/domain"
)

// Results: результаты поиска по всем разделам.
type Results struct {
	News   []domain.News
	Events []domain.Event
	Cafes  []domain.Cafe
}

func (r Results) Total() int {
	return len(r.News) + len(r.Events) + len(r.Cafes)
}

// Search ищет среди опубликованных записей; limit применяется к каждому разделу.
func Search(query string, news []domain.News, events []domain.Event, cafes []domain.Cafe, limit int) Results {
	res := Results{
		News:   []domain.News{},
		Events: []domain.Event{},
		Cafes:  []domain.Cafe{},
	}
	if strings.TrimSpace(query) == "" {
		return res
	}

	for _, n := range news {
		if n.Status == domain.StatusPublished && matchesQuery(query, n.Title, n.Summary, n.Category, n.Tags) {
			res.News = append(res.News, n)
		}
	}
	sortNewsByDate(res.News)

	for _, e := range events {
		if e.Status == domain.StatusPublished && matchesQuery(query, e.Title, e.Description, e.Venue, e.Address, e.Category, e.Tags) {
			res.Events = append(res.Events, e)
		}
	}
	sort.SliceStable(res.Events, func(i, j int) bool {
		return res.Events[i].StartDate.Before(res.Events[j].StartDate)
	})

	for _, c := range cafes {
		if c.Status == domain.StatusPublished && matchesQuery(query, c.Name, c.Description, c.Address, c.District, c.Category, c.Tags) {
			res.Cafes = append(res.Cafes, c)
		}
	}
	sort.SliceStable(res.Cafes, func(i, j int) bool {
		return strings.ToLower(res.Cafes[i].Name) < strings.ToLower(res.Cafes[j].Name)
	})

	res.News = Page(res.News, 0, limit)
	res.Events = Page(res.Events, 0, limit)
	res.Cafes = Page(res.Cafes, 0, limit)

	return res
}
