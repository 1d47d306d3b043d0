// Package clinics implements the clinic finder: text search against Google
// Places with distance annotation relative to the caller's location.
package clinics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/clinicai/gateway/internal/webhook"
)

// DefaultPlacesBaseURL is the production Google Maps API host.
const DefaultPlacesBaseURL = "https://maps.googleapis.com"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one Places text-search result, reduced to the fields the finder
// uses.
type Place struct {
	PlaceID          string
	Name             string
	FormattedAddress string
	Vicinity         string
	Rating           *float64
	UserRatingsTotal *int
	Location         *LatLng
}

// StatusError reports a non-OK Places API status.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("places: status %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("places: status %s", e.Status)
}

// Searcher runs a clinic text search around a center point.
type Searcher interface {
	TextSearch(ctx context.Context, query string, center LatLng, radiusMeters int) ([]Place, error)
}

// PlacesClient calls the Places Text Search REST API.
type PlacesClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// PlacesOption configures a PlacesClient.
type PlacesOption func(*PlacesClient)

// WithPlacesBaseURL overrides the API host, mainly for tests.
func WithPlacesBaseURL(baseURL string) PlacesOption {
	return func(c *PlacesClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPlacesHTTPClient replaces the HTTP client.
func WithPlacesHTTPClient(client *http.Client) PlacesOption {
	return func(c *PlacesClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewPlacesClient creates a Places API client.
func NewPlacesClient(apiKey string, opts ...PlacesOption) *PlacesClient {
	c := &PlacesClient{
		apiKey:     apiKey,
		baseURL:    DefaultPlacesBaseURL,
		httpClient: &http.Client{Timeout: webhook.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// placesResponse is the wire shape of a text-search response.
type placesResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	Geometry         struct {
		Location *LatLng `json:"location"`
	} `json:"geometry"`
}

// TextSearch runs a text search biased to center and radius. A ZERO_RESULTS
// status returns an empty slice; any other non-OK status is a *StatusError.
func (c *PlacesClient) TextSearch(ctx context.Context, query string, center LatLng, radiusMeters int) ([]Place, error) {
	endpoint := fmt.Sprintf("%s/maps/api/place/textsearch/json", c.baseURL)

	params := url.Values{}
	params.Set("query", query)
	params.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	params.Set("radius", fmt.Sprintf("%d", radiusMeters))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("places: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places: text search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: fmt.Sprintf("HTTP_%d", resp.StatusCode)}
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("places: decode response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, &StatusError{Status: body.Status, Message: body.ErrorMessage}
	}

	places := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		places = append(places, Place{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Vicinity:         r.Vicinity,
			Rating:           r.Rating,
			UserRatingsTotal: r.UserRatingsTotal,
			Location:         r.Geometry.Location,
		})
	}
	return places, nil
}
