package catalog

import (
	"testing"
	"time"

	"thepup/internal/geo"
	"thepup/internal/models/domain"

	"github.com/google/uuid"
)

func TestSplitAndJoinTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"simple", "bts, army", []string{"bts", "army"}},
		{"hashes and blanks", "#BTS,, #army ,", []string{"BTS", "army"}},
		{"case-insensitive dupes", "Jimin, jimin, JIMIN, V", []string{"Jimin", "V"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SplitTags(c.in)
			if !equalStrings(got, c.want) {
				t.Fatalf("SplitTags(%q) = %q; want %q", c.in, got, c.want)
			}
		})
	}

	if got := JoinTags([]string{" #seventeen", "carat", "Seventeen"}); got != "seventeen, carat" {
		t.Fatalf("JoinTags = %q", got)
	}
	if got := NormalizeTags("#a,#b,,a"); got != "a, b" {
		t.Fatalf("NormalizeTags = %q", got)
	}
	if !HasTag("BTS, army", "#bts") || HasTag("BTS, army", "exo") || !HasTag("", "") {
		t.Fatalf("HasTag returned unexpected result")
	}
}

func TestCategories(t *testing.T) {
	got := Categories([]string{"Concert", "popup", "", "concert", " Birthday "})
	if want := []string{"Birthday", "Concert", "popup"}; !equalStrings(got, want) {
		t.Fatalf("Categories = %v; want %v", got, want)
	}
}

func newsItem(title, category, tags string, published time.Time, status domain.Status) domain.News {
	return domain.News{
		ID:          uuid.New(),
		Title:       title,
		Category:    category,
		Tags:        tags,
		Status:      status,
		PublishedAt: &published,
	}
}

func TestFilterNews(t *testing.T) {
	items := []domain.News{
		newsItem("Comeback announced", "music", "bts, comeback", day(1, time.October, 9), domain.StatusPublished),
		newsItem("Tour dates", "concert", "bts, tour", day(10, time.October, 9), domain.StatusPublished),
		newsItem("Secret draft", "music", "bts", day(12, time.October, 9), domain.StatusDraft),
		newsItem("Chart record", "music", "blackpink", day(5, time.October, 9), domain.StatusPublished),
	}
	noDate := domain.News{ID: uuid.New(), Title: "Old import", Category: "music", Status: domain.StatusPublished, CreatedAt: day(7, time.October, 9)}
	items = append(items, noDate)

	newsTitles := func(ns []domain.News) []string {
		out := make([]string, len(ns))
		for i, n := range ns {
			out[i] = n.Title
		}
		return out
	}

	got := newsTitles(FilterNews(items, NewsFilter{}))
	if want := []string{"Tour dates", "Old import", "Chart record", "Comeback announced"}; !equalStrings(got, want) {
		t.Fatalf("FilterNews() = %v; want %v", got, want)
	}

	got = newsTitles(FilterNews(items, NewsFilter{Category: "Music", Tag: "bts"}))
	if want := []string{"Comeback announced"}; !equalStrings(got, want) {
		t.Fatalf("category+tag = %v; want %v", got, want)
	}

	got = newsTitles(FilterNews(items, NewsFilter{Query: "TOUR", IncludeDrafts: true}))
	if want := []string{"Tour dates"}; !equalStrings(got, want) {
		t.Fatalf("query = %v; want %v", got, want)
	}

	got = newsTitles(FilterNews(items, NewsFilter{Category: "all", Limit: 2, Offset: 1}))
	if want := []string{"Old import", "Chart record"}; !equalStrings(got, want) {
		t.Fatalf("paging = %v; want %v", got, want)
	}

	related := newsTitles(RelatedNews(items, items[0], 3))
	if want := []string{"Old import", "Chart record", "Tour dates"}; !equalStrings(related, want) {
		t.Fatalf("RelatedNews = %v; want %v", related, want)
	}

	if got := RelatedNews(items, items[0], 0); len(got) != 0 {
		t.Fatalf("RelatedNews(n=0) = %v", got)
	}
}

func cafe(name, district string, lat, lng *float64) domain.Cafe {
	return domain.Cafe{
		ID:        uuid.New(),
		Name:      name,
		Category:  "cafe",
		District:  district,
		Latitude:  lat,
		Longitude: lng,
		Status:    domain.StatusPublished,
	}
}

func TestFilterCafes(t *testing.T) {
	items := []domain.Cafe{
		cafe("Purple Cup", "Siam", ptr(13.7455), ptr(100.5340)),
		cafe("army base", "Ari", ptr(13.7797), ptr(100.5446)),
		cafe("Lightstick Bar", "Thonglor", nil, nil),
		cafe("Borahae", "Siam", ptr(13.7460), ptr(100.5300)),
	}
	draft := cafe("Hidden", "Siam", nil, nil)
	draft.Status = domain.StatusDraft
	items = append(items, draft)

	names := func(hits []CafeHit) []string {
		out := make([]string, len(hits))
		for i, h := range hits {
			out[i] = h.Cafe.Name
		}
		return out
	}

	got := names(FilterCafes(items, CafeFilter{}))
	if want := []string{"army base", "Borahae", "Lightstick Bar", "Purple Cup"}; !equalStrings(got, want) {
		t.Fatalf("by name = %v; want %v", got, want)
	}

	got = names(FilterCafes(items, CafeFilter{District: "siam"}))
	if want := []string{"Borahae", "Purple Cup"}; !equalStrings(got, want) {
		t.Fatalf("district = %v; want %v", got, want)
	}

	near := geo.Point{Lat: 13.7800, Lng: 100.5450}
	hits := FilterCafes(items, CafeFilter{Near: &near, Sort: CafeSortDistance})
	got = names(hits)
	if want := []string{"army base", "Purple Cup", "Borahae", "Lightstick Bar"}; !equalStrings(got, want) {
		t.Fatalf("by distance = %v; want %v", got, want)
	}
	if hits[0].DistanceKm == nil || *hits[0].DistanceKm > 0.1 {
		t.Fatalf("distance to army base = %v", hits[0].DistanceKm)
	}
	if hits[3].DistanceKm != nil {
		t.Fatalf("cafe without coordinates must have no distance")
	}

	if _, err := ParseCafeSort("rating"); err == nil {
		t.Fatalf("ParseCafeSort(rating) expected error")
	}
}

func TestSearch(t *testing.T) {
	news := []domain.News{
		newsItem("BTS world tour", "concert", "", day(1, time.October, 9), domain.StatusPublished),
		newsItem("BTS draft", "concert", "", day(2, time.October, 9), domain.StatusDraft),
	}
	events := []domain.Event{
		ev("Jungkook birthday cafe", "birthday", day(1, time.September, 9), nil, domain.StatusPublished),
		ev("Fan meeting", "fanmeet", day(2, time.September, 9), nil, domain.StatusPublished),
	}
	events[1].Tags = "bts, army"
	cafes := []domain.Cafe{cafe("Bangtan Corner", "Siam", nil, nil)}
	cafes[0].Description = "BTS themed desserts"

	res := Search("bts", news, events, cafes, 10)
	if len(res.News) != 1 || len(res.Events) != 1 || len(res.Cafes) != 1 || res.Total() != 3 {
		t.Fatalf("Search(bts) = %+v", res)
	}
	if res.Events[0].Title != "Fan meeting" {
		t.Fatalf("event hit = %q; want tag match", res.Events[0].Title)
	}

	if res := Search("bts tour", news, events, cafes, 10); res.Total() != 1 {
		t.Fatalf("multi-term search total = %d; want 1", res.Total())
	}

	if res := Search("  ", news, events, cafes, 10); res.Total() != 0 || res.News == nil {
		t.Fatalf("empty query must return empty, non-nil result: %+v", res)
	}
}
