package sites

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"thepup/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

var bangkok = time.FixedZone("ICT", 7*3600)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const mecListing = `<html><body>
<article class="mec-event-article">
  <h3 class="mec-event-title"><a class="mec-color-hover" href="/events/bts-cupsleeve/">BTS Cupsleeve</a></h3>
</article>
<article class="mec-event-article">
  <h3 class="mec-event-title"><a class="mec-color-hover" href="https://fans.example.com/events/twice-party/">TWICE Party</a></h3>
</article>
<div class="mec-event-title"><a href="/events/bts-cupsleeve/">duplicate</a></div>
<div class="mec-event-title"><a href="">empty</a></div>
</body></html>`

func TestParseMECListing(t *testing.T) {
	base, _ := url.Parse("https://fans.example.com/calendar/")

	got := ParseMECListing(mustDoc(t, mecListing), base)
	want := []string{
		"https://fans.example.com/events/bts-cupsleeve/",
		"https://fans.example.com/events/twice-party/",
	}

	if len(got) != len(want) {
		t.Fatalf("links = %q; want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("links[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}

const mecEvent = `<html><body><div class="mec-wrap">
<h1 class="mec-single-title">BTS   Cupsleeve
  Event</h1>
<div class="mec-events-event-image"><img src="https://cdn.example.com/bts.jpg"></div>
<div class="mec-single-event-description"><p>Free cupsleeves &amp; photocards</p><script>var tracking = 1;</script></div>
<div class="mec-single-event-date"><span class="mec-start-date-label">01 Nov 2026</span><span class="mec-end-date-label">- 02 Nov 2026</span></div>
<div class="mec-single-event-time"><abbr class="mec-events-abbr">10:00 am - 6:30 pm</abbr></div>
<div class="mec-single-event-category"><dd><a href="/cat/cupsleeve">Cupsleeve</a></dd></div>
<div class="mec-single-event-location"><h6 class="author">Purple Cafe</h6><address class="mec-address">Siam Square, Bangkok</address></div>
<div class="mec-single-event-organizer"><div class="mec-organizer"><h6>ARMY Thailand</h6></div></div>
<a class="mec-booking-button" href="https://tickets.example.com/bts">Book</a>
<div id="map" data-lat="13.7453" data-lng="100.5341"></div>
</div></body></html>`

func TestParseMECEvent(t *testing.T) {
	link := "https://fans.example.com/events/bts-cupsleeve/"

	event, ok := ParseMECEvent(mustDoc(t, mecEvent), link, bangkok)
	if !ok {
		t.Fatal("event not parsed")
	}

	if event.Title != "BTS Cupsleeve Event" {
		t.Errorf("Title = %q", event.Title)
	}
	if event.Description != "Free cupsleeves & photocards" {
		t.Errorf("Description = %q", event.Description)
	}
	if event.ImageURL != "https://cdn.example.com/bts.jpg" || event.TicketURL != "https://tickets.example.com/bts" {
		t.Errorf("urls = %q %q", event.ImageURL, event.TicketURL)
	}
	if event.Category != "Cupsleeve" || event.Venue != "Purple Cafe" || event.Address != "Siam Square, Bangkok" {
		t.Errorf("place = %q %q %q", event.Category, event.Venue, event.Address)
	}
	if event.Organizer != "ARMY Thailand" {
		t.Errorf("Organizer = %q", event.Organizer)
	}
	if !event.HasLocation() || *event.Latitude != 13.7453 || *event.Longitude != 100.5341 {
		t.Errorf("location = %v %v", event.Latitude, event.Longitude)
	}

	wantStart := time.Date(2026, 11, 1, 10, 0, 0, 0, bangkok)
	wantEnd := time.Date(2026, 11, 2, 18, 30, 0, 0, bangkok)
	if !event.StartDate.Equal(wantStart) {
		t.Errorf("StartDate = %v; want %v", event.StartDate, wantStart)
	}
	if event.EndDate == nil || !event.EndDate.Equal(wantEnd) {
		t.Errorf("EndDate = %v; want %v", event.EndDate, wantEnd)
	}
	if event.Status != domain.StatusDraft || event.SourceURL != link {
		t.Errorf("status/source = %q %q", event.Status, event.SourceURL)
	}
}

func TestParseMECEventWithoutDate(t *testing.T) {
	html := `<h1 class="mec-single-title">No date</h1>`
	if _, ok := ParseMECEvent(mustDoc(t, html), "https://x", bangkok); ok {
		t.Fatal("event without date must be skipped")
	}
}

func TestParseMECEventSingleDay(t *testing.T) {
	html := `<h1 class="mec-single-title">Birthday</h1>
<div class="mec-single-event-date"><span class="mec-start-date-label">2026-12-30</span></div>`

	event, ok := ParseMECEvent(mustDoc(t, html), "https://x", bangkok)
	if !ok {
		t.Fatal("event not parsed")
	}
	if event.EndDate != nil {
		t.Errorf("EndDate = %v; want nil", event.EndDate)
	}
	if !event.StartDate.Equal(time.Date(2026, 12, 30, 0, 0, 0, 0, bangkok)) {
		t.Errorf("StartDate = %v", event.StartDate)
	}
}

func TestWithClock(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		hour int
	}{
		{"9:15", 9},
		{"9:15 pm", 21},
		{"12:05 am", 0},
		{"12:05 PM", 12},
	}

	for _, c := range cases {
		times := timeRe.FindAllStringSubmatch(c.in, 2)
		got := withClock(day, times, 0)
		if got.Hour() != c.hour || got.Minute() == 0 {
			t.Errorf("withClock(%q) = %v; want hour %d", c.in, got, c.hour)
		}
	}
}

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>K-Pop Daily</title>
<item>
  <title>SEVENTEEN announce tour</title>
  <link>https://news.example.com/svt-tour</link>
  <description>&lt;p&gt;Dates &lt;b&gt;announced&lt;/b&gt;&lt;/p&gt;</description>
  <category>Tour</category>
  <category>#SEVENTEEN</category>
  <pubDate>Mon, 12 Oct 2026 08:00:00 GMT</pubDate>
  <enclosure url="https://cdn.example.com/svt.jpg" type="image/jpeg" length="1"/>
</item>
<item>
  <title>No link</title>
</item>
<item>
  <title>   </title>
  <link>https://news.example.com/empty</link>
</item>
<item>
  <title>Second</title>
  <link>https://news.example.com/second</link>
</item>
</channel></rss>`

func TestFeedToNews(t *testing.T) {
	feed, err := gofeed.NewParser().ParseString(feedXML)
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}

	news := FeedToNews(feed, maxFeedItems)
	if len(news) != 2 {
		t.Fatalf("got %d news; want 2", len(news))
	}

	n := news[0]
	if n.Title != "SEVENTEEN announce tour" || n.SourceURL != "https://news.example.com/svt-tour" {
		t.Errorf("title/link = %q %q", n.Title, n.SourceURL)
	}
	if n.Summary != "Dates announced" {
		t.Errorf("Summary = %q", n.Summary)
	}
	if n.Category != "tour" || n.Tags != "Tour, SEVENTEEN" {
		t.Errorf("category/tags = %q %q", n.Category, n.Tags)
	}
	if n.Author != "K-Pop Daily" {
		t.Errorf("Author = %q", n.Author)
	}
	if n.ImageURL != "https://cdn.example.com/svt.jpg" {
		t.Errorf("ImageURL = %q", n.ImageURL)
	}
	if n.PublishedAt == nil || !n.PublishedAt.Equal(time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", n.PublishedAt)
	}
	if n.Status != domain.StatusDraft {
		t.Errorf("Status = %q", n.Status)
	}

	if limited := FeedToNews(feed, 1); len(limited) != 1 {
		t.Errorf("maxCount ignored: %d", len(limited))
	}
}

func TestMergeReadable(t *testing.T) {
	teaser := domain.News{
		Title:    "SEVENTEEN announce tour",
		Summary:  "Dates announced",
		Content:  "<p>Dates announced</p>",
		Author:   "K-Pop Daily",
		ImageURL: "",
	}
	article := readability.Article{
		Content: "<div><p>Full article body</p></div>",
		Excerpt: "Other excerpt",
		Image:   "https://cdn.example.com/og.jpg",
		Byline:  "  Jane  Doe ",
	}

	got := MergeReadable(teaser, article)
	if got.Content != article.Content {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Summary != "Dates announced" || got.Author != "K-Pop Daily" {
		t.Errorf("feed fields overwritten: %q %q", got.Summary, got.Author)
	}
	if got.ImageURL != article.Image {
		t.Errorf("ImageURL = %q", got.ImageURL)
	}

	got = MergeReadable(domain.News{Content: "<p>kept</p>"}, readability.Article{Byline: "  Jane  Doe "})
	if got.Content != "<p>kept</p>" || got.Author != "Jane Doe" {
		t.Errorf("empty article handling: %+v", got)
	}
}
