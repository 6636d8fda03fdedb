package model

import "time"

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
)

// Booking represents a scheduled clinic appointment.
type Booking struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	PetName         string    `json:"pet_name"`
	ClientName      string    `json:"client_name,omitempty"`
	ClientPhone     string    `json:"client_phone,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Comment         string    `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration returns the booked span as a time.Duration.
func (b *Booking) Duration() time.Duration {
	return time.Duration(b.DurationMinutes) * time.Minute
}

// EndTime returns the instant the booking ends.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(b.Duration())
}

// OverlapsWith checks if this booking overlaps with another booking.
// Uses half-open interval [start, end) semantics - adjacent bookings do not overlap.
func (b *Booking) OverlapsWith(other *Booking) bool {
	return b.StartTime.Before(other.EndTime()) && other.StartTime.Before(b.EndTime())
}

// ContainsTime checks if the given instant falls within [start, end).
func (b *Booking) ContainsTime(t time.Time) bool {
	return !t.Before(b.StartTime) && t.Before(b.EndTime())
}

// OnDate checks if the booking starts on the given calendar day.
func (b *Booking) OnDate(date time.Time) bool {
	y1, m1, d1 := b.StartTime.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsActive returns true for bookings that still occupy their slot.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCanceled
}
