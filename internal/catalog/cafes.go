package catalog

import (
	"fmt"
	"sort"
	"strings"

	"thepup/internal/geo"
	"thepup/internal/models/domain"
)

type CafeSort string

const (
	CafeSortName     CafeSort = "name"
	CafeSortDistance CafeSort = "distance"
)

func ParseCafeSort(s string) (CafeSort, error) {
	switch cs := CafeSort(strings.ToLower(strings.TrimSpace(s))); cs {
	case "":
		return CafeSortName, nil
	case CafeSortName, CafeSortDistance:
		return cs, nil
	default:
		return "", fmt.Errorf("unknown sort: %s", s)
	}
}

// CafeFilter: параметры каталога кафе.
type CafeFilter struct {
	Category      string
	District      string
	Query         string
	Near          *geo.Point
	Sort          CafeSort
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// CafeHit: кафе и расстояние до точки Near, если оно известно.
type CafeHit struct {
	Cafe       domain.Cafe
	DistanceKm *float64
}

// FilterCafes фильтрует кафе и сортирует по имени или по расстоянию.
// При сортировке по расстоянию кафе без координат идут в конце (по имени).
func FilterCafes(items []domain.Cafe, f CafeFilter) []CafeHit {
	result := make([]CafeHit, 0, len(items))
	for _, c := range items {
		if !f.IncludeDrafts && c.Status != domain.StatusPublished {
			continue
		}
		if !matchesCategory(c.Category, f.Category) {
			continue
		}
		if !matchesCategory(c.District, f.District) {
			continue
		}
		if !matchesQuery(f.Query, c.Name, c.Description, c.Address, c.District, c.Tags) {
			continue
		}

		hit := CafeHit{Cafe: c}
		if f.Near != nil && c.HasLocation() {
			d := geo.Haversine(*f.Near, geo.Point{Lat: *c.Latitude, Lng: *c.Longitude})
			hit.DistanceKm = &d
		}
		result = append(result, hit)
	}

	byName := func(i, j int) bool {
		return strings.ToLower(result[i].Cafe.Name) < strings.ToLower(result[j].Cafe.Name)
	}

	if f.Sort == CafeSortDistance && f.Near != nil {
		sort.SliceStable(result, func(i, j int) bool {
			di, dj := result[i].DistanceKm, result[j].DistanceKm
			switch {
			case di != nil && dj != nil:
				if *di != *dj {
					return *di < *dj
				}
				return byName(i, j)
			case di != nil:
				return true
			case dj != nil:
				return false
			default:
				return byName(i, j)
			}
		})
	} else {
		sort.SliceStable(result, byName)
	}

	return Page(result, f.Offset, f.Limit)
}
