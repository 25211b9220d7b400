package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"thepup/internal/models/domain"

	"github.com/google/uuid"
)

func f(v float64) *float64 { return &v }

func TestEventRequestValidate(t *testing.T) {
	start := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	cases := []struct {
		name string
		req  EventRequest
		ok   bool
	}{
		{"valid", EventRequest{Title: "Fanmeet", StartDate: start}, true},
		{"valid with coords", EventRequest{Title: "Fanmeet", StartDate: start, Latitude: f(13.7), Longitude: f(100.5), Status: "published"}, true},
		{"no title", EventRequest{Title: "  ", StartDate: start}, false},
		{"no start", EventRequest{Title: "Fanmeet"}, false},
		{"end before start", EventRequest{Title: "Fanmeet", StartDate: start, EndDate: &before}, false},
		{"only latitude", EventRequest{Title: "Fanmeet", StartDate: start, Latitude: f(13.7)}, false},
		{"latitude out of range", EventRequest{Title: "Fanmeet", StartDate: start, Latitude: f(91), Longitude: f(0)}, false},
		{"unknown status", EventRequest{Title: "Fanmeet", StartDate: start, Status: "archived"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.req.Validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v; want ErrValidation", err)
			}
		})
	}
}

func TestCafeAndNewsValidate(t *testing.T) {
	if err := (CafeRequest{Name: "Purple Cafe", Longitude: f(100)}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("cafe with one coordinate: %v", err)
	}
	if err := (CafeRequest{Name: "Purple Cafe", Latitude: f(13.7), Longitude: f(181)}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("cafe longitude out of range: %v", err)
	}
	if err := (CafeRequest{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("cafe without name: %v", err)
	}
	if err := (NewsRequest{Title: "Comeback"}).Validate(); err != nil {
		t.Errorf("news: %v", err)
	}
	if err := (UpdateStatusRequest{Status: ""}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("empty status change must fail: %v", err)
	}
}

func TestNewsRequestTags(t *testing.T) {
	for _, raw := range []string{
		`{"title":"a","tags":"#BTS, army, bts"}`,
		`{"title":"a","tags":["BTS","army"]}`,
	} {
		var req NewsRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}

		n := MapNewsRequestToDomain(req, uuid.New())
		if n.Tags != "BTS, army" {
			t.Errorf("%s: tags = %q", raw, n.Tags)
		}
		if n.Status != domain.StatusDraft {
			t.Errorf("%s: status = %q; want draft", raw, n.Status)
		}
	}
}

func TestListResponseNeverNull(t *testing.T) {
	data, err := json.Marshal(NewListResponse[NewsResponse](nil, 0, 20, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"items":[],"total":0,"limit":20,"offset":0}` {
		t.Fatalf("got %s", data)
	}
}
