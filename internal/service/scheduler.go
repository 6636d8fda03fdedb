package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wuauser/internal/cache"
	"wuauser/internal/metrics"
	"wuauser/internal/model"
	"wuauser/internal/slots"
	"wuauser/internal/store"
)

var (
	// ErrSlotUnavailable means the requested slot conflicts with an
	// existing booking or the closing boundary.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrUnknownSlot means the requested start time is not on the grid.
	ErrUnknownSlot = errors.New("start time is not on the slot grid")
	// ErrTooSoon means the booking starts before the minimum advance window.
	ErrTooSoon = errors.New("booking starts too soon")
	// ErrTooFar means the booking starts beyond the maximum advance window.
	ErrTooFar = errors.New("booking starts too far in the future")
)

// BookingRepository is the store surface the scheduler needs.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
	ListForDate(ctx context.Context, date time.Time) ([]model.Booking, error)
	CancelByReference(ctx context.Context, reference string) error
}

// Rules restricts how far ahead bookings may be placed.
type Rules struct {
	MinAdvance time.Duration
	MaxAdvance time.Duration
}

// Scheduler computes day availability and creates bookings while keeping
// the no-overlap invariant of the booking store.
type Scheduler struct {
	repo   BookingRepository
	engine *slots.Engine
	cache  *cache.AvailabilityCache
	rules  Rules
	log    *zerolog.Logger

	now func() time.Time
}

// NewScheduler creates a scheduler. cache may be nil to disable caching.
func NewScheduler(repo BookingRepository, engine *slots.Engine, c *cache.AvailabilityCache, rules Rules, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		repo:   repo,
		engine: engine,
		cache:  c,
		rules:  rules,
		log:    logger,
		now:    time.Now,
	}
}

// DayAvailability is a full evaluation of a day's slot grid.
type DayAvailability struct {
	Date            string             `json:"date"`
	DurationMinutes int                `json:"duration_minutes"`
	Slots           []slots.Evaluation `json:"slots"`
	Suggestions     slots.Suggestions  `json:"suggestions"`
}

// DayAvailability evaluates every grid slot for the given date and
// candidate duration.
func (s *Scheduler) DayAvailability(ctx context.Context, date time.Time, durationMinutes int) (*DayAvailability, error) {
	var cached DayAvailability
	if s.cache.Get(ctx, date, durationMinutes, &cached) {
		return &cached, nil
	}

	bookings, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	evals, err := s.engine.Evaluate(bookings, date, durationMinutes)
	if err != nil {
		return nil, err
	}

	metrics.IncSlotEvaluation()
	for _, ev := range evals {
		if !ev.Available {
			metrics.IncSlotConflict(ev.Reason)
		}
	}

	day := &DayAvailability{
		Date:            date.Format("2006-01-02"),
		DurationMinutes: durationMinutes,
		Slots:           evals,
		Suggestions:     slots.Suggest(evals),
	}
	s.cache.Set(ctx, date, durationMinutes, day)
	return day, nil
}

// FreeSlots returns the quick-picker view of a day: grid times without an
// exact start-time match. See slots.Engine.FreeSlots for why this is
// coarser than DayAvailability.
func (s *Scheduler) FreeSlots(ctx context.Context, date time.Time) ([]string, error) {
	bookings, err := s.repo.ListForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return s.engine.FreeSlots(bookings, date), nil
}

// BookingsForDate returns the day's active bookings.
func (s *Scheduler) BookingsForDate(ctx context.Context, date time.Time) ([]model.Booking, error) {
	return s.repo.ListForDate(ctx, date)
}

// CreateBooking validates the candidate against advance rules and the slot
// grid, then persists it. The booking's Reference and Status are set here.
func (s *Scheduler) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.DurationMinutes <= 0 {
		metrics.IncBookingRejected("invalid_duration")
		return fmt.Errorf("duration must be positive, got %d", b.DurationMinutes)
	}

	now := s.now()
	if b.StartTime.Before(now.Add(s.rules.MinAdvance)) {
		metrics.IncBookingRejected("too_soon")
		return ErrTooSoon
	}
	if s.rules.MaxAdvance > 0 && b.StartTime.After(now.Add(s.rules.MaxAdvance)) {
		metrics.IncBookingRejected("too_far")
		return ErrTooFar
	}

	bookings, err := s.repo.ListForDate(ctx, b.StartTime)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	evals, err := s.engine.Evaluate(bookings, b.StartTime, b.DurationMinutes)
	if err != nil {
		return err
	}

	slotLabel := b.StartTime.Format("15:04")
	var target *slots.Evaluation
	for i := range evals {
		if evals[i].Time == slotLabel {
			target = &evals[i]
			break
		}
	}
	if target == nil {
		metrics.IncBookingRejected("off_grid")
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slotLabel)
	}
	if !target.Available {
		metrics.IncBookingRejected("conflict")
		metrics.IncSlotConflict(target.Reason)
		if target.Detail != "" {
			return fmt.Errorf("%w: %s (%s)", ErrSlotUnavailable, target.Reason, target.Detail)
		}
		return fmt.Errorf("%w: %s", ErrSlotUnavailable, target.Reason)
	}

	b.Reference = uuid.NewString()
	b.Status = model.StatusConfirmed
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		// A concurrent writer can claim the slot between the evaluation
		// above and the insert; the store's transactional check is the
		// authority.
		if errors.Is(err, store.ErrSlotTaken) {
			metrics.IncBookingRejected("conflict")
			return fmt.Errorf("%w: %s", ErrSlotUnavailable, slotLabel)
		}
		return fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.cache.InvalidateDate(ctx, b.StartTime)

	s.log.Info().
		Str("reference", b.Reference).
		Str("pet", b.PetName).
		Time("start", b.StartTime).
		Int("duration_minutes", b.DurationMinutes).
		Msg("booking created")
	return nil
}

// CancelBooking cancels a booking by reference and frees its slot.
func (s *Scheduler) CancelBooking(ctx context.Context, reference string) error {
	b, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}

	if err := s.repo.CancelByReference(ctx, reference); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	metrics.IncBookingCancelled()
	s.cache.InvalidateDate(ctx, b.StartTime)

	s.log.Info().
		Str("reference", reference).
		Time("start", b.StartTime).
		Msg("booking canceled")
	return nil
}
