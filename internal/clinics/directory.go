package clinics

import (
	"context"
	"strings"
)

// StaticDirectory answers searches from a fixed clinic list when no Places
// API key is configured, so the finder page stays usable in demo mode.
type StaticDirectory struct {
	places []Place
}

// NewStaticDirectory creates the stock demo directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{places: demoPlaces}
}

// TextSearch matches the query against clinic names case-insensitively. The
// default "clinic" query returns the whole directory.
func (d *StaticDirectory) TextSearch(ctx context.Context, query string, center LatLng, radiusMeters int) ([]Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || q == DefaultQuery {
		return d.places, nil
	}

	var matched []Place
	for _, p := range d.places {
		if strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

var demoPlaces = []Place{
	{
		PlaceID:          "demo-city-health",
		Name:             "City Health Medical Center",
		FormattedAddress: "350 W 42nd St, New York, NY 10036",
		Rating:           ptrFloat(4.6),
		UserRatingsTotal: ptrInt(312),
		Location:         &LatLng{Lat: 40.7580, Lng: -73.9930},
	},
	{
		PlaceID:          "demo-harbor-urgent",
		Name:             "Harbor Urgent Care",
		FormattedAddress: "101 Water St, Brooklyn, NY 11201",
		Rating:           ptrFloat(4.4),
		UserRatingsTotal: ptrInt(188),
		Location:         &LatLng{Lat: 40.7030, Lng: -73.9900},
	},
	{
		PlaceID:          "demo-riverside-peds",
		Name:             "Riverside Pediatrics",
		FormattedAddress: "2109 Broadway, New York, NY 10023",
		Rating:           ptrFloat(4.8),
		UserRatingsTotal: ptrInt(97),
		Location:         &LatLng{Lat: 40.7780, Lng: -73.9820},
	},
	{
		PlaceID:          "demo-midtown-dental",
		Name:             "Midtown Dental Clinic",
		FormattedAddress: "5 E 51st St, New York, NY 10022",
		Rating:           ptrFloat(4.2),
		UserRatingsTotal: ptrInt(240),
		Location:         &LatLng{Lat: 40.7590, Lng: -73.9760},
	},
	{
		PlaceID:          "demo-queens-family",
		Name:             "Queens Family Practice",
		FormattedAddress: "37-12 Main St, Flushing, NY 11354",
		Rating:           ptrFloat(4.5),
		UserRatingsTotal: ptrInt(154),
		Location:         &LatLng{Lat: 40.7620, Lng: -73.8300},
	},
}
