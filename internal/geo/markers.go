package geo

import (
	"fmt"
	"strings"
	"sync"
)

const (
	markerSize         = 32
	selectedMarkerSize = 44
)

// Marker: описание иконки маркера для карты.
type Marker struct {
	IconURL string `json:"icon_url"`
	Color   string `json:"color"`
	Size    int    `json:"size"`
}

type markerKey struct {
	category string
	selected bool
}

// MarkerCache хранит уже собранные маркеры по паре (категория, выбран).
type MarkerCache struct {
	mu           sync.RWMutex
	markers      map[markerKey]Marker
	iconBaseURL  string
	defaultColor string
	palette      map[string]string
}

func NewMarkerCache(iconBaseURL, defaultColor string, palette map[string]string) *MarkerCache {
	p := make(map[string]string, len(palette))
	for k, v := range palette {
		p[strings.ToLower(k)] = v
	}

	return &MarkerCache{
		markers:      make(map[markerKey]Marker),
		iconBaseURL:  strings.TrimRight(iconBaseURL, "/"),
		defaultColor: defaultColor,
		palette:      p,
	}
}

// Get возвращает маркер из кэша или собирает новый.
func (c *MarkerCache) Get(category string, selected bool) Marker {
	key := markerKey{category: strings.ToLower(strings.TrimSpace(category)), selected: selected}

	c.mu.RLock()
	m, ok := c.markers[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	m = c.build(key)

	c.mu.Lock()
	if existing, ok := c.markers[key]; ok {
		m = existing
	} else {
		c.markers[key] = m
	}
	c.mu.Unlock()

	return m
}

// Len: количество закэшированных маркеров.
func (c *MarkerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markers)
}

func (c *MarkerCache) build(key markerKey) Marker {
	color, ok := c.palette[key.category]
	if !ok {
		color = c.defaultColor
	}

	name := iconSlug(key.category)
	size := markerSize
	if key.selected {
		name += "-selected"
		size = selectedMarkerSize
	}

	return Marker{
		IconURL: fmt.Sprintf("%s/%s.svg", c.iconBaseURL, name),
		Color:   color,
		Size:    size,
	}
}

func iconSlug(category string) string {
	if category == "" {
		return "default"
	}

	var sb strings.Builder
	dash := false
	for _, r := range category {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "default"
	}
	return slug
}
