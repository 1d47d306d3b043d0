// Package onboarding implements the clinic signup wizard: per-step
// validation, final registration and profile persistence.
package onboarding

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// AvailableServices is the fixed service catalog offered by the wizard.
var AvailableServices = []string{
	"General Checkups",
	"Vaccinations",
	"Lab Tests",
	"Mental Health",
	"Pediatrics",
	"Women's Health",
	"Chronic Disease Management",
	"Urgent Care",
	"Physical Therapy",
	"Dermatology",
	"Cardiology",
	"Orthopedics",
}

// ClinicInfo is step one of the wizard.
type ClinicInfo struct {
	ClinicName string `json:"clinicName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// DayHours is one weekday's schedule. Open/Close are "15:04" strings and
// are ignored when Closed is set.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// Hours is the full weekly schedule, step three of the wizard.
type Hours struct {
	Monday    DayHours `json:"monday"`
	Tuesday   DayHours `json:"tuesday"`
	Wednesday DayHours `json:"wednesday"`
	Thursday  DayHours `json:"thursday"`
	Friday    DayHours `json:"friday"`
	Saturday  DayHours `json:"saturday"`
	Sunday    DayHours `json:"sunday"`
}

// DefaultHours returns the wizard's prefill: weekdays 9-5, a short
// Saturday, Sunday closed.
func DefaultHours() Hours {
	weekday := DayHours{Open: "09:00", Close: "17:00"}
	return Hours{
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekday,
		Saturday:  DayHours{Open: "09:00", Close: "13:00"},
		Sunday:    DayHours{Closed: true},
	}
}

// Submission is the full wizard payload reviewed in step four.
type Submission struct {
	ClinicInfo
	Services []string `json:"services"`
	Hours    Hours    `json:"hours"`
}

// ValidationError reports the first failing field of a wizard step.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("onboarding: %s: %s", e.Field, e.Reason)
}

// ValidateInfo checks the step-one required fields.
func ValidateInfo(info ClinicInfo) error {
	required := []struct {
		field, value string
	}{
		{"clinicName", info.ClinicName},
		{"email", info.Email},
		{"phone", info.Phone},
		{"address", info.Address},
		{"city", info.City},
		{"state", info.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(info.Email)); err != nil {
		return &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	return nil
}

// ValidateServices checks step two: at least one catalog service selected.
func ValidateServices(services []string) error {
	if len(services) == 0 {
		return &ValidationError{Field: "services", Reason: "select at least one service"}
	}
	catalog := make(map[string]struct{}, len(AvailableServices))
	for _, s := range AvailableServices {
		catalog[s] = struct{}{}
	}
	for _, s := range services {
		if _, ok := catalog[s]; !ok {
			return &ValidationError{Field: "services", Reason: fmt.Sprintf("unknown service %q", s)}
		}
	}
	return nil
}

// ValidateHours checks step three: every open day needs a valid window and
// at least one day must be open.
func ValidateHours(hours Hours) error {
	days := []struct {
		name string
		day  DayHours
	}{
		{"monday", hours.Monday},
		{"tuesday", hours.Tuesday},
		{"wednesday", hours.Wednesday},
		{"thursday", hours.Thursday},
		{"friday", hours.Friday},
		{"saturday", hours.Saturday},
		{"sunday", hours.Sunday},
	}

	open := 0
	for _, d := range days {
		if d.day.Closed {
			continue
		}
		open++
		openAt, err := time.Parse("15:04", d.day.Open)
		if err != nil {
			return &ValidationError{Field: d.name, Reason: fmt.Sprintf("invalid open time %q", d.day.Open)}
		}
		closeAt, err := time.Parse("15:04", d.day.Close)
		if err != nil {
			return &ValidationError{Field: d.name, Reason: fmt.Sprintf("invalid close time %q", d.day.Close)}
		}
		if !closeAt.After(openAt) {
			return &ValidationError{Field: d.name, Reason: "close time must be after open time"}
		}
	}
	if open == 0 {
		return &ValidationError{Field: "hours", Reason: "at least one day must be open"}
	}
	return nil
}

// Validate checks the whole submission, step by step.
func Validate(sub Submission) error {
	if err := ValidateInfo(sub.ClinicInfo); err != nil {
		return err
	}
	if err := ValidateServices(sub.Services); err != nil {
		return err
	}
	return ValidateHours(sub.Hours)
}
