package dto

import "thepup/internal/catalog"

// SearchResponse: результаты поиска по всем разделам.
type SearchResponse struct {
	Query  string          `json:"query"`
	Total  int             `json:"total"`
	News   []NewsResponse  `json:"news"`
	Events []EventResponse `json:"events"`
	Cafes  []CafeResponse  `json:"cafes"`
}

func MapSearchResults(query string, res catalog.Results) SearchResponse {
	return SearchResponse{
		Query:  query,
		Total:  res.Total(),
		News:   MapDomainToNewsResponseList(res.News),
		Events: MapDomainToEventResponseList(res.Events),
		Cafes:  MapDomainToCafeResponseList(res.Cafes),
	}
}
