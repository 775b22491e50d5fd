package slots

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultSlotMinutes is used when no slot length is configured.
const DefaultSlotMinutes = 30

// Slot represents a time slot.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
	Available bool
}

// SlotInfo is a simplified representation for API payloads.
type SlotInfo struct {
	Start     string `json:"start"` // "10:00"
	End       string `json:"end"`   // "10:30"
	Available bool   `json:"available"`
}

// BookingChecker reports whether an employee already has an appointment
// overlapping the slot.
type BookingChecker interface {
	IsSlotBooked(ctx context.Context, employeeID int64, start, end time.Time) (bool, error)
}

// Settings exposes the configured slot granularity and slot generation
// over an arbitrary open/close interval.
type Settings struct {
	SlotMinutes int
}

// TimeSlotLength returns the configured slot length in minutes.
func (s Settings) TimeSlotLength() int {
	if s.SlotMinutes <= 0 {
		return DefaultSlotMinutes
	}
	return s.SlotMinutes
}

// SlotsForRange returns slot start times between open and close at the
// configured granularity.
func (s Settings) SlotsForRange(open, close time.Time) []string {
	return SlotsForRange(open, close, s.TimeSlotLength())
}

// SlotsForRange generates ordered HH:MM slot-start strings from open up to
// close. A slot is emitted only when it fits entirely before close. The
// empty result for close <= open is guarded here independently of any
// correction the caller applies.
func SlotsForRange(open, close time.Time, stepMinutes int) []string {
	if stepMinutes <= 0 {
		stepMinutes = DefaultSlotMinutes
	}
	if !close.After(open) {
		return nil
	}

	step := time.Duration(stepMinutes) * time.Minute
	var out []string
	for cursor := open; !cursor.Add(step).After(close); cursor = cursor.Add(step) {
		out = append(out, cursor.Format("15:04"))
	}
	return out
}

// Generator generates availability-aware slots for an employee's day.
type Generator struct {
	checker BookingChecker
}

// NewGenerator creates a new slot generator.
func NewGenerator(checker BookingChecker) *Generator {
	return &Generator{checker: checker}
}

// DayWindow describes the working window to fill with slots.
type DayWindow struct {
	Open        string // "09:00"
	Close       string // "18:00"
	SlotMinutes int
	IsClosed    bool
}

// Generate produces all slots for an employee on a date, marking slots that
// are already booked or in the past as unavailable.
func (g *Generator) Generate(ctx context.Context, employeeID int64, date time.Time, window DayWindow) ([]Slot, error) {
	if window.IsClosed {
		return nil, nil
	}

	if window.SlotMinutes <= 0 {
		window.SlotMinutes = DefaultSlotMinutes
	}

	open, err := ParseTimeOnDate(date, window.Open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}
	close, err := ParseTimeOnDate(date, window.Close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}

	step := time.Duration(window.SlotMinutes) * time.Minute
	var result []Slot

	for cursor := open; !cursor.Add(step).After(close); cursor = cursor.Add(step) {
		slotStart := cursor
		slotEnd := cursor.Add(step)

		booked := false
		if g.checker != nil {
			booked, err = g.checker.IsSlotBooked(ctx, employeeID, slotStart, slotEnd)
			if err != nil {
				return nil, fmt.Errorf("check slot: %w", err)
			}
		}

		isPast := slotStart.Before(time.Now())

		result = append(result, Slot{
			StartTime: slotStart,
			EndTime:   slotEnd,
			Available: !booked && !isPast,
		})
	}

	return result, nil
}

// ToSlotInfo converts slots to SlotInfo for API responses.
func ToSlotInfo(in []Slot) []SlotInfo {
	result := make([]SlotInfo, len(in))
	for i, s := range in {
		result[i] = SlotInfo{
			Start:     s.StartTime.Format("15:04"),
			End:       s.EndTime.Format("15:04"),
			Available: s.Available,
		}
	}
	return result
}

// Available returns only available slots.
func Available(in []Slot) []Slot {
	var out []Slot
	for _, s := range in {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// ConsecutiveGroups finds runs of back-to-back available slots.
func ConsecutiveGroups(in []Slot) [][]Slot {
	avail := Available(in)
	if len(avail) == 0 {
		return nil
	}

	sort.Slice(avail, func(i, j int) bool {
		return avail[i].StartTime.Before(avail[j].StartTime)
	})

	var groups [][]Slot
	current := []Slot{avail[0]}

	for i := 1; i < len(avail); i++ {
		if avail[i].StartTime.Equal(current[len(current)-1].EndTime) {
			current = append(current, avail[i])
		} else {
			groups = append(groups, current)
			current = []Slot{avail[i]}
		}
	}
	groups = append(groups, current)

	return groups
}

// ParseTimeOnDate combines an HH:MM string with a calendar date, keeping the
// date's location.
func ParseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %s", timeStr)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
