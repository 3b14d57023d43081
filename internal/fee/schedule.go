// Package fee evaluates tiered pricing schedules for cash movements.
package fee

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoTier is returned when no tier of a schedule contains the amount.
// This is a data-configuration defect, not a user input error.
var ErrNoTier = errors.New("fee: no tier matches amount")

// Fee is either a flat absolute fee or a fractional rate applied to the
// amount. The stored schedules encode this in a single number: values
// below 1 are rates, everything else is flat. The distinction is resolved
// once, here, so downstream code never repeats the magnitude test.
type Fee struct {
	value float64
	rate  bool
}

// Flat returns a flat absolute fee.
func Flat(amount float64) Fee { return Fee{value: amount} }

// Rate returns a fractional rate fee.
func Rate(fraction float64) Fee { return Fee{value: fraction, rate: true} }

// FromMagnitude builds a Fee using the schedule encoding rule: values
// below 1 are rates, values of 1 and above are flat.
func FromMagnitude(v float64) Fee {
	if v < 1 {
		return Rate(v)
	}
	return Flat(v)
}

// Apply computes the fee owed on amount.
func (f Fee) Apply(amount float64) float64 {
	if f.rate {
		return amount * f.value
	}
	return f.value
}

// IsRate reports whether the fee is a fractional rate.
func (f Fee) IsRate() bool { return f.rate }

// Tier is one inclusive amount range of a schedule.
type Tier struct {
	From float64
	To   float64
	Fee  Fee
}

// Contains reports whether amount falls in the tier's inclusive range.
func (t Tier) Contains(amount float64) bool {
	return amount >= t.From && amount <= t.To
}

// Schedule is an ordered sequence of contiguous, non-overlapping tiers.
type Schedule struct {
	tiers []Tier
}

// line mirrors one element of the stored JSON tier array.
type line struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Fee  float64 `json:"fee"`
}

// ParseLines builds a schedule from the JSON tier array stored in the
// pricing table.
func ParseLines(raw string) (Schedule, error) {
	var lines []line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return Schedule{}, fmt.Errorf("fee: parsing tier lines: %w", err)
	}
	if len(lines) == 0 {
		return Schedule{}, errors.New("fee: schedule has no tiers")
	}
	tiers := make([]Tier, len(lines))
	for i, l := range lines {
		tiers[i] = Tier{From: l.From, To: l.To, Fee: FromMagnitude(l.Fee)}
	}
	return Schedule{tiers: tiers}, nil
}

// New builds a schedule from explicit tiers. Used by tests and seeds.
func New(tiers ...Tier) Schedule { return Schedule{tiers: tiers} }

// Evaluate returns the fee for amount. The first tier containing the
// amount wins; schedules are assumed non-overlapping.
func (s Schedule) Evaluate(amount float64) (float64, error) {
	for _, t := range s.tiers {
		if t.Contains(amount) {
			return t.Fee.Apply(amount), nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrNoTier, amount)
}

// Min returns the smallest permitted amount, the lowest tier's From bound.
func (s Schedule) Min() float64 {
	min := s.tiers[0].From
	for _, t := range s.tiers[1:] {
		if t.From < min {
			min = t.From
		}
	}
	return min
}

// Max returns the largest permitted amount, the highest tier's To bound.
func (s Schedule) Max() float64 {
	max := s.tiers[0].To
	for _, t := range s.tiers[1:] {
		if t.To > max {
			max = t.To
		}
	}
	return max
}

// Len returns the number of tiers.
func (s Schedule) Len() int { return len(s.tiers) }
