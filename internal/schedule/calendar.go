package schedule

import (
	"time"
)

// Slot is a concrete (date, time-of-day) scheduling coordinate.
type Slot struct {
	Date      time.Time
	Time      string // "08:00", "18:00", etc.
	Tier      int    // index into the configured times; the last tier is premium
	DayOffset int
}

// Calendar walks slots day by day. Within a day it proposes the day's
// slots in ascending desirability; the opening day may host fewer slots
// than the rest, always the most desirable ones.
type Calendar struct {
	start    time.Time
	times    []string
	capacity int
	opening  int

	day   int
	index int
}

// NewCalendar returns a calendar positioned on the first slot of day 0.
// times must be ordered from least to most desirable.
func NewCalendar(start time.Time, times []string, capacity, openingCapacity int) *Calendar {
	if capacity <= 0 || capacity > len(times) {
		capacity = len(times)
	}
	if openingCapacity <= 0 || openingCapacity > capacity {
		openingCapacity = capacity
	}
	return &Calendar{
		start:    time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		times:    times,
		capacity: capacity,
		opening:  openingCapacity,
	}
}

// Current returns the slot the cursor points to.
func (c *Calendar) Current() Slot {
	return c.slot(c.day, c.index)
}

// Advance moves the cursor to the next slot, rolling over to the first
// slot of the next day when the current day is full.
func (c *Calendar) Advance() {
	c.index++
	if c.index >= c.Capacity(c.day) {
		c.day++
		c.index = 0
	}
}

// Day returns the day offset of the cursor.
func (c *Calendar) Day() int {
	return c.day
}

// Capacity returns how many slots the given day offset hosts.
func (c *Calendar) Capacity(day int) int {
	if day == 0 {
		return c.opening
	}
	return c.capacity
}

// DateForOffset returns the start date plus n calendar days.
func (c *Calendar) DateForOffset(n int) time.Time {
	return c.start.AddDate(0, 0, n)
}

// PremiumTier returns the tier of the most desirable slot.
func (c *Calendar) PremiumTier() int {
	return len(c.times) - 1
}

// DaySlots returns every slot of the given day in ascending desirability.
func (c *Calendar) DaySlots(day int) []Slot {
	n := c.Capacity(day)
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, c.slot(day, i))
	}
	return slots
}

func (c *Calendar) slot(day, index int) Slot {
	tier := len(c.times) - c.Capacity(day) + index
	return Slot{
		Date:      c.DateForOffset(day),
		Time:      c.times[tier],
		Tier:      tier,
		DayOffset: day,
	}
}

// daysBetween returns the number of whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
