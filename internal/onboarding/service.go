package onboarding

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/pkg/logging"
)

// Service registers clinics: it validates the wizard submission, mints the
// clinic and assistant ids through the demo provider (the simulated
// upstream) and persists the profile.
type Service struct {
	store    Store
	provider *demo.Provider
	logger   *logging.Logger
}

// NewService creates an onboarding service.
func NewService(store Store, provider *demo.Provider, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, provider: provider, logger: logger}
}

// Register validates and persists a wizard submission.
func (s *Service) Register(ctx context.Context, sub Submission) (Profile, error) {
	sub = normalize(sub)
	if err := Validate(sub); err != nil {
		return Profile{}, err
	}

	registered, err := s.provider.RegisterClinic(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("onboarding: register clinic: %w", err)
	}

	profile := Profile{
		ID:            registered.ID,
		AIAssistantID: registered.AIAssistantID,
		Submission:    sub,
		CreatedAt:     registered.CreatedAt,
	}
	if err := s.store.Save(ctx, profile); err != nil {
		return Profile{}, err
	}

	s.logger.Info("clinic registered",
		"clinic_id", profile.ID,
		"assistant_id", profile.AIAssistantID,
		"name", profile.ClinicName,
		"services", len(profile.Services),
	)
	return profile, nil
}

// Get loads a registered clinic profile.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.store.Get(ctx, id)
}

func normalize(sub Submission) Submission {
	sub.ClinicName = strings.TrimSpace(sub.ClinicName)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Address = strings.TrimSpace(sub.Address)
	sub.City = strings.TrimSpace(sub.City)
	sub.State = strings.TrimSpace(sub.State)
	return sub
}
