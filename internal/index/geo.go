package index

import (
	"math"
	"strings"
	"sync"

	"github.com/dreamware/torusdb/internal/types"
)

const geohashBase32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// DefaultGeohashPrecision matches §4.2's configurable default.
const DefaultGeohashPrecision = 6

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0088

// encodeGeohash computes the standard base32 geohash for (lat, lng) at
// the given character precision.
func encodeGeohash(lat, lng float64, precision int) string {
	latRange := [2]float64{-90, 90}
	lngRange := [2]float64{-180, 180}

	var bits []byte
	evenBit := true
	var ch, bit int

	for len(bits) < precision {
		if evenBit {
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}
		evenBit = !evenBit

		if bit < 4 {
			bit++
		} else {
			bits = append(bits, geohashBase32[ch])
			bit = 0
			ch = 0
		}
	}
	return string(bits)
}

// haversineKm returns the great-circle distance between two points in
// kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// decodeGeohashBounds returns the (latRange, lngRange) cell bounds for a
// geohash string, the inverse of the refinement loop in encodeGeohash.
func decodeGeohashBounds(hash string) (latRange, lngRange [2]float64) {
	latRange = [2]float64{-90, 90}
	lngRange = [2]float64{-180, 180}
	evenBit := true

	for _, c := range hash {
		idx := strings.IndexRune(geohashBase32, c)
		if idx < 0 {
			continue
		}
		for bit := 4; bit >= 0; bit-- {
			bitVal := (idx >> uint(bit)) & 1
			if evenBit {
				mid := (lngRange[0] + lngRange[1]) / 2
				if bitVal == 1 {
					lngRange[0] = mid
				} else {
					lngRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if bitVal == 1 {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			evenBit = !evenBit
		}
	}
	return latRange, lngRange
}

// neighborHashes returns the geohash of the cell plus its 8 surrounding
// cells at the same precision, wrapping longitude across the
// antimeridian and clamping latitude at the poles.
func neighborHashes(hash string) []string {
	latRange, lngRange := decodeGeohashBounds(hash)
	latStep := latRange[1] - latRange[0]
	lngStep := lngRange[1] - lngRange[0]
	centerLat := (latRange[0] + latRange[1]) / 2
	centerLng := (lngRange[0] + lngRange[1]) / 2
	precision := len(hash)

	wrapLng := func(lng float64) float64 {
		for lng > 180 {
			lng -= 360
		}
		for lng < -180 {
			lng += 360
		}
		return lng
	}
	clampLat := func(lat float64) float64 {
		if lat > 90 {
			return 90
		}
		if lat < -90 {
			return -90
		}
		return lat
	}

	seen := make(map[string]bool)
	var out []string
	for dLat := -1; dLat <= 1; dLat++ {
		for dLng := -1; dLng <= 1; dLng++ {
			lat := clampLat(centerLat + float64(dLat)*latStep)
			lng := wrapLng(centerLng + float64(dLng)*lngStep)
			h := encodeGeohash(lat, lng, precision)
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

// geohashCellKm gives the approximate (width, height) in kilometers of a
// geohash cell at each precision, used to pick a search precision coarse
// enough that its 3x3 neighbor ring actually covers a query radius
// instead of just the few hundred meters to few kilometers around the
// query point that the storage precision's own cells span.
var geohashCellKm = map[int][2]float64{
	1: {5009.4, 4992.6},
	2: {1252.3, 624.1},
	3: {156.5, 156.0},
	4: {39.1, 19.5},
	5: {4.89, 4.89},
	6: {1.22, 0.61},
	7: {0.153, 0.153},
	8: {0.0382, 0.0191},
	9: {0.00477, 0.00477},
}

// searchPrecisionForRadius returns the finest geohash precision (most
// characters) whose cell is still at least as large as radiusKm in both
// dimensions, so a 3x3 neighbor ring at that precision comfortably spans
// the query radius around the center point.
func searchPrecisionForRadius(radiusKm float64) int {
	for p := 9; p >= 1; p-- {
		dims := geohashCellKm[p]
		if dims[0] >= radiusKm && dims[1] >= radiusKm {
			return p
		}
	}
	return 1
}

type geoEntry struct {
	subject types.EntityId
	lat     float64
	lng     float64
}

// geoIndex buckets entries by geohash prefix and supports radius and
// bounding-box queries. Buckets are a coarse pre-filter; every query
// does an exact haversine or range check before returning a match.
type geoIndex struct {
	mu        sync.RWMutex
	precision int
	buckets   map[string][]geoEntry
	bySubject map[types.EntityId]geoEntry
}

func newGeoIndex(precision int) *geoIndex {
	if precision <= 0 {
		precision = DefaultGeohashPrecision
	}
	return &geoIndex{
		precision: precision,
		buckets:   make(map[string][]geoEntry),
		bySubject: make(map[types.EntityId]geoEntry),
	}
}

func (g *geoIndex) add(subject types.EntityId, lat, lng float64) {
	hash := encodeGeohash(lat, lng, g.precision)
	entry := geoEntry{subject: subject, lat: lat, lng: lng}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.buckets[hash] = append(g.buckets[hash], entry)
	g.bySubject[subject] = entry
}

func (g *geoIndex) remove(subject types.EntityId, lat, lng float64) {
	hash := encodeGeohash(lat, lng, g.precision)

	g.mu.Lock()
	defer g.mu.Unlock()
	bucket := g.buckets[hash]
	for i, e := range bucket {
		if e.subject == subject {
			g.buckets[hash] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(g.bySubject, subject)
}

// RadiusResult is one geo match with its distance from the query
// center.
type RadiusResult struct {
	Subject  types.EntityId
	Lat, Lng float64
	Distance float64 // km
}

// Radius returns every entry within radiusKm of (centerLat, centerLng),
// sorted ascending by distance. The query point's geohash is truncated
// to a precision whose cell size covers radiusKm (never finer than the
// index's own storage precision), then every bucket whose hash shares
// that coarser prefix with the center cell or one of its 8 neighbors is
// scanned and refined with an exact haversine distance check, per §4.2's
// geo index description.
func (g *geoIndex) radius(centerLat, centerLng, radiusKm float64) []RadiusResult {
	searchPrecision := searchPrecisionForRadius(radiusKm)
	if searchPrecision > g.precision {
		searchPrecision = g.precision
	}
	centerHash := encodeGeohash(centerLat, centerLng, searchPrecision)
	candidates := neighborHashes(centerHash)
	candidateSet := make(map[string]bool, len(candidates))
	for _, h := range candidates {
		candidateSet[h] = true
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []RadiusResult
	for hash, bucket := range g.buckets {
		if !candidateSet[hash[:searchPrecision]] {
			continue
		}
		for _, e := range bucket {
			d := haversineKm(centerLat, centerLng, e.lat, e.lng)
			if d <= radiusKm {
				out = append(out, RadiusResult{Subject: e.subject, Lat: e.lat, Lng: e.lng, Distance: d})
			}
		}
	}
	sortRadiusResults(out)
	return out
}

func sortRadiusResults(r []RadiusResult) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j].Distance < r[j-1].Distance; j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

// BBox queries every entry within [minLat, maxLat] x [minLng, maxLng].
// When minLng > maxLng the box is understood to cross the antimeridian
// and is split into two half-boxes: [minLng, 180] and [-180, maxLng].
func (g *geoIndex) bbox(minLat, minLng, maxLat, maxLng float64) []RadiusResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inLat := func(lat float64) bool { return lat >= minLat && lat <= maxLat }
	var inLng func(lng float64) bool
	if minLng <= maxLng {
		inLng = func(lng float64) bool { return lng >= minLng && lng <= maxLng }
	} else {
		inLng = func(lng float64) bool { return lng >= minLng || lng <= maxLng }
	}

	var out []RadiusResult
	for _, bucket := range g.buckets {
		for _, e := range bucket {
			if inLat(e.lat) && inLng(e.lng) {
				out = append(out, RadiusResult{Subject: e.subject, Lat: e.lat, Lng: e.lng})
			}
		}
	}
	return out
}
