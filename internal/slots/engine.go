package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"wuauser/internal/model"
)

// Conflict reasons reported per evaluated slot.
const (
	ReasonOccupied = "direct occupancy"
	ReasonOverlap  = "overlap with existing booking"
	ReasonClosing  = "exceeds closing time"
)

const noonMinute = 12 * 60

// DefaultGridTimes is the clinic's daily slot grid. The gap between 11:30
// and 14:00 is the lunch break; there are no slots before 08:00 or from
// 18:00 onwards.
var DefaultGridTimes = []string{
	"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// DefaultClosingTime is the daily cutoff; no booking may extend past it.
const DefaultClosingTime = "18:00"

// Evaluation classifies a single grid slot for a candidate duration.
type Evaluation struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Suggestions are derived from a day's evaluations.
type Suggestions struct {
	NextAvailable  string `json:"next_available,omitempty"`
	MorningCount   int    `json:"morning_count"`
	AfternoonCount int    `json:"afternoon_count"`
}

type gridSlot struct {
	label string
	start int // minutes since midnight
}

// Engine classifies grid slots as available or conflicted for a given day.
// It is pure: no clock reads, no I/O, no hidden state.
type Engine struct {
	grid    []gridSlot
	closing int
}

// New creates an engine for the given slot grid ("HH:MM" start times, in
// chronological order) and closing time.
func New(gridTimes []string, closingTime string) (*Engine, error) {
	if len(gridTimes) == 0 {
		return nil, fmt.Errorf("slot grid is empty")
	}

	closing, err := clockMinutes(closingTime)
	if err != nil {
		return nil, fmt.Errorf("parse closing time: %w", err)
	}

	grid := make([]gridSlot, 0, len(gridTimes))
	prev := -1
	for _, label := range gridTimes {
		start, err := clockMinutes(label)
		if err != nil {
			return nil, fmt.Errorf("parse slot time: %w", err)
		}
		if start <= prev {
			return nil, fmt.Errorf("slot grid not in chronological order at %s", label)
		}
		prev = start
		grid = append(grid, gridSlot{label: label, start: start})
	}

	return &Engine{grid: grid, closing: closing}, nil
}

// Default returns the engine with the clinic's standard grid and closing time.
func Default() *Engine {
	e, err := New(DefaultGridTimes, DefaultClosingTime)
	if err != nil {
		panic(err) // built-in constants are known valid
	}
	return e
}

// GridTimes returns the slot start labels in chronological order.
func (e *Engine) GridTimes() []string {
	times := make([]string, len(e.grid))
	for i, s := range e.grid {
		times[i] = s.label
	}
	return times
}

// Evaluate classifies every grid slot for booking a candidate of the given
// duration on the given date. Checks are applied in fixed precedence: an
// exact start-time match wins over an interval overlap, which wins over the
// closing-time cutoff. Only bookings starting on the target date count.
func (e *Engine) Evaluate(bookings []model.Booking, date time.Time, durationMinutes int) ([]Evaluation, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}

	day := sameDayBookings(bookings, date)

	evals := make([]Evaluation, 0, len(e.grid))
	for _, s := range e.grid {
		eval := Evaluation{Time: s.label}
		end := s.start + durationMinutes

		if b := directMatch(day, s.start); b != nil {
			eval.Reason = ReasonOccupied
			eval.Detail = fmt.Sprintf("booked for %s", b.PetName)
		} else if b := firstOverlap(day, s.start, end); b != nil {
			eval.Reason = ReasonOverlap
			eval.Detail = fmt.Sprintf("conflicts with %s at %s", b.PetName, b.StartTime.Format("15:04"))
		} else if end > e.closing {
			eval.Reason = ReasonClosing
		} else {
			eval.Available = true
		}

		evals = append(evals, eval)
	}

	return evals, nil
}

// FreeSlots returns grid times without an exact start-time match on the
// given date. Unlike Evaluate it does NOT check interval overlap or the
// closing boundary: this is the coarser check behind the quick-hour picker,
// kept separate from the full evaluator on purpose. Do not unify the two
// paths without confirming product intent.
func (e *Engine) FreeSlots(bookings []model.Booking, date time.Time) []string {
	day := sameDayBookings(bookings, date)

	var free []string
	for _, s := range e.grid {
		if directMatch(day, s.start) != nil {
			continue
		}
		free = append(free, s.label)
	}
	return free
}

// Suggest derives the next available slot and morning/afternoon counts from
// a day's evaluations. Evaluations are expected in chronological grid order.
func Suggest(evaluations []Evaluation) Suggestions {
	var sug Suggestions
	for _, ev := range evaluations {
		if !ev.Available {
			continue
		}
		if sug.NextAvailable == "" {
			sug.NextAvailable = ev.Time
		}
		start, err := clockMinutes(ev.Time)
		if err != nil {
			continue
		}
		if start < noonMinute {
			sug.MorningCount++
		} else {
			sug.AfternoonCount++
		}
	}
	return sug
}

func sameDayBookings(bookings []model.Booking, date time.Time) []model.Booking {
	var day []model.Booking
	for i := range bookings {
		if bookings[i].OnDate(date) {
			day = append(day, bookings[i])
		}
	}
	return day
}

func directMatch(day []model.Booking, start int) *model.Booking {
	for i := range day {
		if minutesOfDay(day[i].StartTime) == start {
			return &day[i]
		}
	}
	return nil
}

func firstOverlap(day []model.Booking, start, end int) *model.Booking {
	for i := range day {
		bStart := minutesOfDay(day[i].StartTime)
		bEnd := bStart + day[i].DurationMinutes
		// Half-open intervals [start, end) overlap iff each starts before the other ends.
		if start < bEnd && bStart < end {
			return &day[i]
		}
	}
	return nil
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func clockMinutes(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}

	return hour*60 + minute, nil
}
