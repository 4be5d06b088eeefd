package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Grid is the fixed schedule a deployment books against.
type Grid struct {
	Slots    []string
	Capacity int
	WeekDays int
	Location *time.Location
}

// NewGrid validates and canonicalises a slot list. Slots must be zero-padded
// 24-hour HH:MM strings; the result is sorted and de-duplicated so string
// order equals time-of-day order.
func NewGrid(slots []string, capacity, weekDays int, loc *time.Location) (Grid, error) {
	if capacity <= 0 {
		return Grid{}, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if weekDays != 5 && weekDays != 7 {
		return Grid{}, fmt.Errorf("week length must be 5 or 7 days, got %d", weekDays)
	}
	if len(slots) == 0 {
		return Grid{}, fmt.Errorf("at least one time slot is required")
	}
	canonical := make([]string, 0, len(slots))
	for _, slot := range slots {
		slot = strings.TrimSpace(slot)
		if !ValidTime(slot) {
			return Grid{}, fmt.Errorf("invalid time slot %q", slot)
		}
		canonical = append(canonical, slot)
	}
	slices.Sort(canonical)
	canonical = slices.Compact(canonical)
	if loc == nil {
		loc = time.Local
	}
	return Grid{Slots: canonical, Capacity: capacity, WeekDays: weekDays, Location: loc}, nil
}

// IsSlot reports whether t is one of the grid's slots.
func (g Grid) IsSlot(t string) bool {
	_, found := slices.BinarySearch(g.Slots, t)
	return found
}

// WeekStart normalises any instant to the Monday of its week in the grid's calendar.
func (g Grid) WeekStart(t time.Time) time.Time {
	return WeekStart(t, g.Location)
}

// ParseWeek parses an ISO date and normalises it to its week start. An empty
// value means the current week.
func (g Grid) ParseWeek(raw string) (time.Time, error) {
	if raw == "" {
		return g.WeekStart(time.Now()), nil
	}
	t, err := ParseISODate(raw, g.Location)
	if err != nil {
		return time.Time{}, err
	}
	return g.WeekStart(t), nil
}

// ValidTime reports whether s is a zero-padded 24-hour HH:MM string.
func ValidTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// ExpandBlocks converts availability blocks into the canonical discrete form.
// A block is either a single slot ("15:00") or a legacy inclusive range
// ("15:00-17:00") which expands to every grid slot t with start <= t <= end.
// The result is sorted and de-duplicated.
func (g Grid) ExpandBlocks(blocks []string) ([]string, error) {
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if _, _, isCell := cellKey(block); isCell {
			return nil, fmt.Errorf("%q is a weekday-slot cell key, split it with SplitCellKeys first", block)
		}
		if start, end, isRange := strings.Cut(block, "-"); isRange {
			start, end = strings.TrimSpace(start), strings.TrimSpace(end)
			if !ValidTime(start) || !ValidTime(end) || end < start {
				return nil, fmt.Errorf("invalid availability range %q", block)
			}
			for _, slot := range g.Slots {
				if slot >= start && slot <= end {
					out = append(out, slot)
				}
			}
			continue
		}
		if !g.IsSlot(block) {
			return nil, fmt.Errorf("%q is not a schedule slot", block)
		}
		out = append(out, block)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// SplitCellKeys pulls per-cell keys of the form "D-HH:MM" (weekday 1..7, then a
// grid slot) out of blocks. The weekdays and slots are returned separately and
// every other block is passed through untouched. Availability stays a
// weekday x slot product, so cells that do not form a full product widen:
// {"1-15:00", "3-16:00"} becomes days {1, 3} with slots {15:00, 16:00}.
func (g Grid) SplitCellKeys(blocks []string) (days []int, rest []string, err error) {
	rest = make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		day, slot, ok := cellKey(block)
		if !ok {
			rest = append(rest, block)
			continue
		}
		if !g.IsSlot(slot) {
			return nil, nil, fmt.Errorf("cell %q: %q is not a schedule slot", block, slot)
		}
		days = append(days, day)
		rest = append(rest, slot)
	}
	return days, rest, nil
}

func cellKey(block string) (int, string, bool) {
	if len(block) != 7 || block[1] != '-' || block[0] < '1' || block[0] > '7' {
		return 0, "", false
	}
	if !ValidTime(block[2:]) {
		return 0, "", false
	}
	return int(block[0] - '0'), block[2:], true
}

// NormalizeWeekdays validates weekday numbers (1..7) and returns them sorted and unique.
func NormalizeWeekdays(days []int) ([]int, error) {
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("weekday %d out of range 1-7", d)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
