package onboarding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicai/gateway/pkg/logging"
)

// Handler serves the onboarding wizard API.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an onboarding HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleDefaults serves the wizard prefill: the service catalog and the
// default weekly hours.
func (h *Handler) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"services": AvailableServices,
		"hours":    DefaultHours(),
	})
}

// HandleValidateStep validates one wizard step without registering.
// POST /api/onboarding/validate/{step} with the step's payload.
func (h *Handler) HandleValidateStep(w http.ResponseWriter, r *http.Request) {
	var err error
	switch chi.URLParam(r, "step") {
	case "info":
		var info ClinicInfo
		if err = json.NewDecoder(r.Body).Decode(&info); err == nil {
			err = ValidateInfo(info)
		}
	case "services":
		var body struct {
			Services []string `json:"services"`
		}
		if err = json.NewDecoder(r.Body).Decode(&body); err == nil {
			err = ValidateServices(body.Services)
		}
	case "hours":
		var body struct {
			Hours Hours `json:"hours"`
		}
		if err = json.NewDecoder(r.Body).Decode(&body); err == nil {
			err = ValidateHours(body.Hours)
		}
	default:
		http.Error(w, "unknown step", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		writeValidationError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"valid": true})
}

// HandleSubmit registers the clinic from the reviewed submission.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.service.Register(r.Context(), sub)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			w.Header().Set("Content-Type", "application/json")
			writeValidationError(w, err)
			return
		}
		h.logger.Error("onboarding: register failed", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(profile)
}

// HandleGetClinic serves a registered clinic profile.
// GET /api/onboarding/clinics/{id}
func (h *Handler) HandleGetClinic(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return
		}
		h.logger.Error("onboarding: load profile failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(profile)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": false, "field": verr.Field, "reason": verr.Reason})
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"valid": false, "reason": "invalid request body"})
}
