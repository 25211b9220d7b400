package geo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// earthRadiusKm: средний радиус Земли.
const earthRadiusKm = 6371.0

// Point: координаты в градусах.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds: прямоугольник видимой области карты.
// Если West > East, область пересекает 180-й меридиан.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

func (b Bounds) Valid() bool {
	return b.South <= b.North &&
		b.North <= 90 && b.South >= -90 &&
		b.East >= -180 && b.East <= 180 &&
		b.West >= -180 && b.West <= 180
}

func (b Bounds) crossesAntimeridian() bool {
	return b.West > b.East
}

// LatSpan: высота области в градусах.
func (b Bounds) LatSpan() float64 {
	return b.North - b.South
}

// LngSpan: ширина области в градусах с учётом перехода через 180-й меридиан.
func (b Bounds) LngSpan() float64 {
	if b.crossesAntimeridian() {
		return 360 - b.West + b.East
	}
	return b.East - b.West
}

// Contains проверяет, попадает ли точка в область (границы включительно).
func (b Bounds) Contains(p Point) bool {
	if p.Lat < b.South || p.Lat > b.North {
		return false
	}
	if b.crossesAntimeridian() {
		return p.Lng >= b.West || p.Lng <= b.East
	}
	return p.Lng >= b.West && p.Lng <= b.East
}

// Covers проверяет, что область inner целиком лежит внутри b.
func (b Bounds) Covers(inner Bounds) bool {
	if inner.North > b.North || inner.South < b.South {
		return false
	}
	if b.LngSpan() >= 360 {
		return true
	}
	offset := normalize360(inner.West - b.West)
	return offset+inner.LngSpan() <= b.LngSpan()
}

// Center возвращает центр области.
func (b Bounds) Center() Point {
	return Point{
		Lat: (b.North + b.South) / 2,
		Lng: wrapLng(b.West + b.LngSpan()/2),
	}
}

// Pad расширяет область на ratio от её размеров с каждой стороны.
func (b Bounds) Pad(ratio float64) Bounds {
	if ratio <= 0 {
		return b
	}

	latPad := b.LatSpan() * ratio
	lngPad := b.LngSpan() * ratio

	padded := Bounds{
		North: math.Min(90, b.North+latPad),
		South: math.Max(-90, b.South-latPad),
	}

	if b.LngSpan()+2*lngPad >= 360 {
		padded.West, padded.East = -180, 180
		return padded
	}

	padded.West = wrapLng(b.West - lngPad)
	padded.East = wrapLng(b.East + lngPad)

	return padded
}

// Intersect возвращает общую часть двух областей.
// Если долготные интервалы пересекаются дважды, берётся больший кусок.
func (b Bounds) Intersect(o Bounds) (Bounds, bool) {
	north := math.Min(b.North, o.North)
	south := math.Max(b.South, o.South)
	if south > north {
		return Bounds{}, false
	}

	spanB, spanO := b.LngSpan(), o.LngSpan()
	offset := normalize360(o.West - b.West)

	lo, hi := 0.0, -1.0
	for _, start := range []float64{offset, offset - 360} {
		l := math.Max(0, start)
		h := math.Min(spanB, start+spanO)
		if h > l && h-l > hi-lo {
			lo, hi = l, h
		}
	}
	if hi < lo {
		return Bounds{}, false
	}

	out := Bounds{North: north, South: south}
	if hi-lo >= 360 {
		out.West, out.East = -180, 180
		return out, true
	}
	out.West = wrapLng(b.West + lo)
	out.East = wrapLng(b.West + hi)
	return out, true
}

// WithinRadius строит область вокруг p, каждая точка которой лежит
// не дальше radiusKm от p.
func WithinRadius(p Point, radiusKm float64) Bounds {
	if radiusKm <= 0 {
		return Bounds{North: p.Lat, South: p.Lat, East: p.Lng, West: p.Lng}
	}

	// путь вдоль параллели p, затем по меридиану не короче дуги большого
	// круга: половина радиуса уходит на долготу, половина на широту
	half := radiusKm / 2 / earthRadiusKm * 180 / math.Pi

	b := Bounds{
		North: math.Min(90, p.Lat+half),
		South: math.Max(-90, p.Lat-half),
	}

	lngHalf := 180.0
	if c := math.Cos(p.Lat * math.Pi / 180); c > 0 {
		lngHalf = half / c
	}
	if lngHalf >= 180 {
		b.West, b.East = -180, 180
		return b
	}
	b.West = wrapLng(p.Lng - lngHalf)
	b.East = wrapLng(p.Lng + lngHalf)
	return b
}

func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.North, b.South, b.East, b.West)
}

// ParseBounds разбирает строку вида "north,south,east,west".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds: expected 4 values, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds: %w", err)
		}
		vals[i] = v
	}

	b := Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}
	if !b.Valid() {
		return Bounds{}, fmt.Errorf("bounds: out of range: %s", s)
	}

	return b, nil
}

// Haversine возвращает расстояние между точками в километрах.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Ranked: элемент с расстоянием до точки отсчёта.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// Nearest сортирует элементы по удалённости от origin.
// Элементы без координат (locate вернул false) отбрасываются.
// n <= 0 означает "без ограничения".
func Nearest[T any](origin Point, items []T, locate func(T) (Point, bool), n int) []Ranked[T] {
	ranked := make([]Ranked[T], 0, len(items))
	for _, it := range items {
		p, ok := locate(it)
		if !ok {
			continue
		}
		ranked = append(ranked, Ranked[T]{Item: it, DistanceKm: Haversine(origin, p)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}

// NeedsRefetch решает, нужно ли заново загружать события для новой области карты.
// Перезагрузка нужна, если viewport вышел за пределы загруженной области
// или карту приблизили так, что загруженная выборка слишком крупная.
func NeedsRefetch(loaded, viewport Bounds) bool {
	if loaded.IsZero() || loaded.LatSpan() <= 0 {
		return true
	}
	if !loaded.Covers(viewport) {
		return true
	}
	return viewport.LatSpan() < loaded.LatSpan()/4
}

func normalize360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func wrapLng(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}
