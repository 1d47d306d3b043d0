package clinics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/clinicai/gateway/pkg/logging"
)

// Search defaults mirroring the finder page: Manhattan as the fallback
// center, a 15 km bias radius, at most 20 results.
const (
	DefaultQuery        = "clinic"
	DefaultRadiusMeters = 15000
	MaxResults          = 20
)

// DefaultCenter is used when the caller shares no location.
var DefaultCenter = LatLng{Lat: 40.7128, Lng: -74.0060}

// Clinic is one finder result.
type Clinic struct {
	ID          string   `json:"id"`
	PlaceID     string   `json:"placeId,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Rating      *float64 `json:"rating"`
	Reviews     *int     `json:"reviews"`
	Distance    string   `json:"distance"`
	Coordinates LatLng   `json:"coordinates"`
	MapsURL     string   `json:"mapsUrl,omitempty"`
}

// SearchResult carries one search's results with its supersede id.
type SearchResult struct {
	SearchID int64    `json:"searchId"`
	Query    string   `json:"query"`
	Clinics  []Clinic `json:"clinics"`
}

// Finder turns Places results into clinic cards and keeps only the latest
// search's results: a slow response from an older search never overwrites a
// newer one.
type Finder struct {
	searcher Searcher
	radius   int
	limit    int
	logger   *logging.Logger

	searchSeq atomic.Int64

	mu     sync.Mutex
	latest SearchResult
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithRadius sets the search bias radius in meters.
func WithRadius(meters int) FinderOption {
	return func(f *Finder) {
		if meters > 0 {
			f.radius = meters
		}
	}
}

// WithLimit caps the result count.
func WithLimit(n int) FinderOption {
	return func(f *Finder) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithFinderLogger sets a custom logger.
func WithFinderLogger(logger *logging.Logger) FinderOption {
	return func(f *Finder) { f.logger = logger }
}

// NewFinder creates a finder over searcher.
func NewFinder(searcher Searcher, opts ...FinderOption) *Finder {
	f := &Finder{
		searcher: searcher,
		radius:   DefaultRadiusMeters,
		limit:    MaxResults,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Search runs a clinic search around center (DefaultCenter when nil). An
// empty query searches for "clinic".
func (f *Finder) Search(ctx context.Context, query string, center *LatLng) (SearchResult, error) {
	effective := strings.TrimSpace(query)
	if effective == "" {
		effective = DefaultQuery
	}
	at := DefaultCenter
	if center != nil {
		at = *center
	}

	searchID := f.searchSeq.Add(1)

	places, err := f.searcher.TextSearch(ctx, effective, at, f.radius)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return SearchResult{}, fmt.Errorf("Clinic search failed: %s", statusErr.Status)
		}
		return SearchResult{}, err
	}

	clinics := make([]Clinic, 0, len(places))
	for _, place := range places {
		if place.Location == nil {
			continue
		}
		clinics = append(clinics, mapPlaceToClinic(place, at))
		if len(clinics) == f.limit {
			break
		}
	}

	result := SearchResult{SearchID: searchID, Query: effective, Clinics: clinics}
	f.publish(result)
	return result, nil
}

// Latest returns the most recent completed search.
func (f *Finder) Latest() SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// publish installs the result unless a newer search already completed.
func (f *Finder) publish(result SearchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if result.SearchID < f.latest.SearchID {
		return
	}
	f.latest = result
}

func mapPlaceToClinic(place Place, center LatLng) Clinic {
	address := place.FormattedAddress
	if address == "" {
		address = place.Vicinity
	}
	name := place.Name
	if name == "" {
		name = "Clinic"
	}
	id := place.PlaceID
	if id == "" {
		id = fmt.Sprintf("%s-%s", name, address)
	}

	clinic := Clinic{
		ID:          id,
		PlaceID:     place.PlaceID,
		Name:        name,
		Address:     address,
		Rating:      place.Rating,
		Reviews:     place.UserRatingsTotal,
		Distance:    formatDistance(haversineMiles(center, *place.Location)),
		Coordinates: *place.Location,
	}
	if place.PlaceID != "" {
		clinic.MapsURL = "https://www.google.com/maps/search/?api=1&query_place_id=" + url.QueryEscape(place.PlaceID)
	}
	return clinic
}

// haversineMiles is the great-circle distance between two coordinates.
func haversineMiles(a, b LatLng) float64 {
	const earthRadiusMiles = 3958.8

	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// formatDistance renders miles the way the finder cards show them: a floor
// label under 0.1, one decimal under 10, whole miles beyond.
func formatDistance(miles float64) string {
	if math.IsNaN(miles) || math.IsInf(miles, 0) {
		return ""
	}
	if miles < 0.1 {
		return "< 0.1 mi"
	}
	if miles < 10 {
		return fmt.Sprintf("%.1f mi", miles)
	}
	return fmt.Sprintf("%.0f mi", miles)
}
