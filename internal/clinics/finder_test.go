package clinics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	mu     sync.Mutex
	places []Place
	err    error

	gotQuery  string
	gotCenter LatLng
	gotRadius int
}

func (s *stubSearcher) TextSearch(ctx context.Context, query string, center LatLng, radiusMeters int) ([]Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotQuery = query
	s.gotCenter = center
	s.gotRadius = radiusMeters
	return s.places, s.err
}

func place(id string, lat, lng float64) Place {
	return Place{
		PlaceID:          id,
		Name:             "Clinic " + id,
		FormattedAddress: id + " Main St",
		Location:         &LatLng{Lat: lat, Lng: lng},
	}
}

func TestSearchDefaults(t *testing.T) {
	stub := &stubSearcher{places: []Place{place("a", 40.72, -74.0)}}
	f := NewFinder(stub)

	result, err := f.Search(context.Background(), "   ", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultQuery, stub.gotQuery)
	assert.Equal(t, DefaultCenter, stub.gotCenter)
	assert.Equal(t, DefaultRadiusMeters, stub.gotRadius)
	require.Len(t, result.Clinics, 1)
	assert.Equal(t, "a", result.Clinics[0].PlaceID)
}

func TestSearchSkipsPlacesWithoutCoordinates(t *testing.T) {
	stub := &stubSearcher{places: []Place{
		{PlaceID: "no-geo", Name: "Ghost Clinic"},
		place("a", 40.72, -74.0),
	}}
	f := NewFinder(stub)

	result, err := f.Search(context.Background(), "clinic", nil)
	require.NoError(t, err)
	require.Len(t, result.Clinics, 1)
	assert.Equal(t, "a", result.Clinics[0].PlaceID)
}

func TestSearchLimit(t *testing.T) {
	var places []Place
	for i := 0; i < 30; i++ {
		places = append(places, place(fmt.Sprintf("p%02d", i), 40.7+float64(i)*0.001, -74.0))
	}
	f := NewFinder(&stubSearcher{places: places})

	result, err := f.Search(context.Background(), "clinic", nil)
	require.NoError(t, err)
	assert.Len(t, result.Clinics, MaxResults)
}

func TestSearchStatusError(t *testing.T) {
	f := NewFinder(&stubSearcher{err: &StatusError{Status: "REQUEST_DENIED"}})

	_, err := f.Search(context.Background(), "clinic", nil)
	require.Error(t, err)
	assert.Equal(t, "Clinic search failed: REQUEST_DENIED", err.Error())
}

func TestStaleSearchDoesNotOverwriteNewer(t *testing.T) {
	f := NewFinder(&stubSearcher{})

	newer := SearchResult{SearchID: 5, Query: "dentist", Clinics: []Clinic{{ID: "new"}}}
	older := SearchResult{SearchID: 3, Query: "clinic", Clinics: []Clinic{{ID: "old"}}}

	f.publish(newer)
	f.publish(older)

	latest := f.Latest()
	assert.Equal(t, int64(5), latest.SearchID)
	assert.Equal(t, "dentist", latest.Query)
}

func TestMapPlaceToClinic(t *testing.T) {
	rating := 4.5
	reviews := 120
	p := Place{
		PlaceID:          "abc",
		Name:             "City Health",
		FormattedAddress: "350 W 42nd St",
		Rating:           &rating,
		UserRatingsTotal: &reviews,
		Location:         &LatLng{Lat: 40.7580, Lng: -73.9930},
	}

	c := mapPlaceToClinic(p, DefaultCenter)
	assert.Equal(t, "abc", c.ID)
	assert.Equal(t, "City Health", c.Name)
	assert.Equal(t, &rating, c.Rating)
	assert.Equal(t, &reviews, c.Reviews)
	assert.Contains(t, c.MapsURL, "query_place_id=abc")
	assert.NotEmpty(t, c.Distance)
}

func TestMapPlaceToClinicFallbacks(t *testing.T) {
	p := Place{Vicinity: "near Main St", Location: &LatLng{Lat: 40.71, Lng: -74.0}}

	c := mapPlaceToClinic(p, DefaultCenter)
	assert.Equal(t, "Clinic", c.Name)
	assert.Equal(t, "near Main St", c.Address)
	assert.Equal(t, "Clinic-near Main St", c.ID)
	assert.Empty(t, c.MapsURL)
	assert.Nil(t, c.Rating)
}

func TestHaversineMiles(t *testing.T) {
	// New York to Los Angeles is roughly 2445 miles.
	nyc := LatLng{Lat: 40.7128, Lng: -74.0060}
	la := LatLng{Lat: 34.0522, Lng: -118.2437}

	got := haversineMiles(nyc, la)
	assert.InDelta(t, 2445, got, 15)

	assert.Equal(t, 0.0, haversineMiles(nyc, nyc))
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		miles float64
		want  string
	}{
		{0.05, "< 0.1 mi"},
		{0.1, "0.1 mi"},
		{1.27, "1.3 mi"},
		{9.94, "9.9 mi"},
		{10.6, "11 mi"},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDistance(tt.miles))
	}
}

func TestPlacesClientTextSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "urgent care", q.Get("query"))
		assert.Equal(t, "15000", q.Get("radius"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"place_id": "p1",
				"name": "Harbor Urgent Care",
				"formatted_address": "101 Water St",
				"rating": 4.4,
				"user_ratings_total": 188,
				"geometry": {"location": {"lat": 40.703, "lng": -73.99}}
			}]
		}`))
	}))
	defer server.Close()

	client := NewPlacesClient("test-key", WithPlacesBaseURL(server.URL))
	places, err := client.TextSearch(context.Background(), "urgent care", DefaultCenter, 15000)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Harbor Urgent Care", places[0].Name)
	require.NotNil(t, places[0].Location)
	assert.InDelta(t, 40.703, places[0].Location.Lat, 1e-9)
}

func TestPlacesClientStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("query") {
		case "nothing":
			_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
		default:
			_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "key invalid"}`))
		}
	}))
	defer server.Close()

	client := NewPlacesClient("bad-key", WithPlacesBaseURL(server.URL))

	places, err := client.TextSearch(context.Background(), "nothing", DefaultCenter, 15000)
	require.NoError(t, err)
	assert.Empty(t, places)

	_, err = client.TextSearch(context.Background(), "clinic", DefaultCenter, 15000)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "REQUEST_DENIED", statusErr.Status)
	assert.Contains(t, statusErr.Error(), "key invalid")
}

func TestStaticDirectory(t *testing.T) {
	dir := NewStaticDirectory()
	ctx := context.Background()

	all, err := dir.TextSearch(ctx, "clinic", DefaultCenter, 15000)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	dental, err := dir.TextSearch(ctx, "Dental", DefaultCenter, 15000)
	require.NoError(t, err)
	require.Len(t, dental, 1)
	assert.Equal(t, "Midtown Dental Clinic", dental[0].Name)

	none, err := dir.TextSearch(ctx, "veterinary", DefaultCenter, 15000)
	require.NoError(t, err)
	assert.Empty(t, none)
}
