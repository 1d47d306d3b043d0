// Package demo answers chat and dashboard requests from local simulated
// data so every surface stays exercisable when no webhook is configured.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicai/gateway/internal/webhook"
)

// statsWindow is the minimum spacing between dashboard random-walk steps.
// Faster polling returns the unchanged snapshot.
const statsWindow = 2 * time.Second

// StatsSnapshot is the live dashboard counter set.
type StatsSnapshot struct {
	TodayAppointments int       `json:"todayAppointments"`
	PendingInquiries  int       `json:"pendingInquiries"`
	ActivePatients    int       `json:"activePatients"`
	AIInteractions    int       `json:"aiInteractions"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Appointment is one row of the today's-appointments table.
type Appointment struct {
	ID      int    `json:"id"`
	Patient string `json:"patient"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

// ActivityItem is one entry of the recent-activity feed.
type ActivityItem struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// RegisteredClinic is the simulated result of onboarding a clinic.
type RegisteredClinic struct {
	ID            string    `json:"id"`
	AIAssistantID string    `json:"aiAssistantId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Slot is a bookable appointment slot.
type Slot struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Booking is a confirmed simulated appointment.
type Booking struct {
	ID        string    `json:"id"`
	SlotID    int       `json:"slotId"`
	Patient   string    `json:"patient"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// walk describes one counter's random-walk behavior.
type walk struct {
	probability float64
	min, max    int
}

var statsWalk = struct {
	todayAppointments walk
	pendingInquiries  walk
	activePatients    walk
	aiInteractions    walk
}{
	todayAppointments: walk{probability: 0.35, min: 0, max: 60},
	pendingInquiries:  walk{probability: 0.40, min: 0, max: 30},
	activePatients:    walk{probability: 0.25, min: 0, max: 5000},
	aiInteractions:    walk{probability: 0.60, min: 0, max: 500},
}

// Provider simulates the upstream workflow. Each instance owns its own
// dashboard snapshot, clock and RNG so tests can construct independent ones.
type Provider struct {
	mu    sync.Mutex
	stats StatsSnapshot

	now   func() time.Time
	rng   *rand.Rand
	delay time.Duration
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithRand replaces the random source for deterministic walks.
func WithRand(rng *rand.Rand) Option {
	return func(p *Provider) { p.rng = rng }
}

// WithDelay adds a simulated network delay to every call.
func WithDelay(d time.Duration) Option {
	return func(p *Provider) { p.delay = d }
}

// NewProvider creates a demo provider with the stock snapshot seed.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		now: time.Now,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stats = StatsSnapshot{
		TodayAppointments: 12,
		PendingInquiries:  5,
		ActivePatients:    248,
		AIInteractions:    89,
		UpdatedAt:         p.now(),
	}
	return p
}

// Chat classifies the message against the fixed keyword set and returns the
// matching script in the caller's language (English for unsupported tags).
func (p *Provider) Chat(ctx context.Context, message, preferredLanguage string) (webhook.Result, error) {
	if err := p.simulate(ctx); err != nil {
		return webhook.Result{}, err
	}

	lang := primarySubtag(preferredLanguage)
	text := scriptText(classify(message), lang)

	return webhook.Result{
		Success:   true,
		Response:  text,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}, nil
}

// DashboardStats advances the snapshot by a bounded random walk, at most
// once per 2s window, and returns a copy.
func (p *Provider) DashboardStats(ctx context.Context) (StatsSnapshot, error) {
	if err := p.simulate(ctx); err != nil {
		return StatsSnapshot{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.stats.UpdatedAt) >= statsWindow {
		p.stats.TodayAppointments = p.step(p.stats.TodayAppointments, statsWalk.todayAppointments)
		p.stats.PendingInquiries = p.step(p.stats.PendingInquiries, statsWalk.pendingInquiries)
		p.stats.ActivePatients = p.step(p.stats.ActivePatients, statsWalk.activePatients)
		p.stats.AIInteractions = p.step(p.stats.AIInteractions, statsWalk.aiInteractions)
		p.stats.UpdatedAt = now
	}

	return p.stats, nil
}

// step moves a counter ±1 with the walk's probability, clamped to its range.
func (p *Provider) step(value int, w walk) int {
	if p.rng.Float64() >= w.probability {
		return value
	}
	if p.rng.Float64() < 0.5 {
		value--
	} else {
		value++
	}
	if value < w.min {
		return w.min
	}
	if value > w.max {
		return w.max
	}
	return value
}

// TodayAppointments returns the fixed illustrative appointment list.
func (p *Provider) TodayAppointments(ctx context.Context) ([]Appointment, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	return []Appointment{
		{ID: 1, Patient: "Sarah Johnson", Time: "9:00 AM", Type: "General Checkup", Status: "Confirmed"},
		{ID: 2, Patient: "Michael Chen", Time: "10:30 AM", Type: "Follow-up", Status: "Confirmed"},
		{ID: 3, Patient: "Emily Davis", Time: "11:00 AM", Type: "Consultation", Status: "Pending"},
		{ID: 4, Patient: "James Wilson", Time: "2:00 PM", Type: "Lab Results", Status: "Confirmed"},
		{ID: 5, Patient: "Maria Garcia", Time: "3:30 PM", Type: "Vaccination", Status: "Confirmed"},
	}, nil
}

// RecentActivity returns the fixed activity feed with timestamps computed
// relative to the current clock.
func (p *Provider) RecentActivity(ctx context.Context) ([]ActivityItem, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}

	now := p.now()
	items := []struct {
		message string
		age     time.Duration
		kind    string
	}{
		{"New appointment booked by AI assistant", 5 * time.Minute, "success"},
		{"Patient inquiry escalated to staff", 15 * time.Minute, "warning"},
		{"Follow-up reminder sent to patients", time.Hour, "info"},
		{"New patient registered via chat", 2 * time.Hour, "success"},
	}

	activity := make([]ActivityItem, 0, len(items))
	for i, item := range items {
		activity = append(activity, ActivityItem{
			ID:        fmt.Sprintf("activity_%d_%d", now.UnixMilli(), i),
			Message:   item.message,
			Type:      item.kind,
			Timestamp: now.Add(-item.age),
		})
	}
	return activity, nil
}

// RegisterClinic simulates creating a clinic and its assistant.
func (p *Provider) RegisterClinic(ctx context.Context) (RegisteredClinic, error) {
	if err := p.simulate(ctx); err != nil {
		return RegisteredClinic{}, err
	}
	return RegisteredClinic{
		ID:            "clinic_" + uuid.NewString(),
		AIAssistantID: "assistant_" + uuid.NewString(),
		CreatedAt:     p.now().UTC(),
	}, nil
}

// AvailableSlots returns the fixed slot list.
func (p *Provider) AvailableSlots(ctx context.Context) ([]Slot, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}
	return []Slot{
		{ID: 1, Date: "Tomorrow", Time: "10:00 AM", Available: true},
		{ID: 2, Date: "Tomorrow", Time: "2:30 PM", Available: true},
		{ID: 3, Date: "Tomorrow", Time: "4:00 PM", Available: true},
		{ID: 4, Date: "Saturday", Time: "9:00 AM", Available: true},
		{ID: 5, Date: "Saturday", Time: "11:30 AM", Available: true},
	}, nil
}

// BookAppointment simulates booking a slot.
func (p *Provider) BookAppointment(ctx context.Context, slotID int, patient string) (Booking, error) {
	if err := p.simulate(ctx); err != nil {
		return Booking{}, err
	}
	return Booking{
		ID:        "apt_" + uuid.NewString(),
		SlotID:    slotID,
		Patient:   patient,
		Status:    "confirmed",
		CreatedAt: p.now().UTC(),
	}, nil
}

// simulate applies the configured fake network delay, honoring cancellation.
func (p *Provider) simulate(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
