package clinics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicai/gateway/pkg/logging"
)

// Handler serves the clinic finder API.
type Handler struct {
	finder *Finder
	logger *logging.Logger
}

// NewHandler creates a finder HTTP handler.
func NewHandler(finder *Finder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{finder: finder, logger: logger}
}

// HandleSearch runs a clinic search.
// GET /api/clinics/search?query=urgent+care&lat=40.71&lng=-74.00
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	center, err := parseCenter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.finder.Search(r.Context(), r.URL.Query().Get("query"), center)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Warn("clinic search failed", "error", err)
		if strings.HasPrefix(err.Error(), "Clinic search failed:") {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, "clinic search failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// HandleLatest serves the most recent completed search.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.finder.Latest())
}

// parseCenter reads the optional lat/lng pair. Both must be present together.
func parseCenter(r *http.Request) (*LatLng, error) {
	latRaw := strings.TrimSpace(r.URL.Query().Get("lat"))
	lngRaw := strings.TrimSpace(r.URL.Query().Get("lng"))
	if latRaw == "" && lngRaw == "" {
		return nil, nil
	}
	if latRaw == "" || lngRaw == "" {
		return nil, errors.New("lat and lng must be provided together")
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, errors.New("invalid lat")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, errors.New("invalid lng")
	}
	return &LatLng{Lat: lat, Lng: lng}, nil
}
