package shopping

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMalformedQuantity reports a quantity that is not a finite number.
var ErrMalformedQuantity = errors.New("shopping: quantity is not a finite number")

// Key identifies a shopping list entry. Units are never converted, so
// "Flour (g)" and "Flour (kg)" stay separate.
type Key struct {
	Name string
	Unit string
}

// Entry is the total quantity required for one key.
type Entry struct {
	Key
	Quantity float64
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s): %s", e.Name, e.Unit, FormatQuantity(e.Quantity))
}

// Report is an aggregated shopping list in first-seen key order.
type Report struct {
	Entries []Entry
}

func (r Report) Empty() bool {
	return len(r.Entries) == 0
}

// Quantity returns the total for key and whether the key is present.
func (r Report) Quantity(key Key) (float64, bool) {
	for _, entry := range r.Entries {
		if entry.Key == key {
			return entry.Quantity, true
		}
	}
	return 0, false
}

// Aggregate merges the ingredient lines of every recipe, summing the
// quantities of lines that share a name and unit.
func Aggregate(recipes []Recipe) (Report, error) {
	index := make(map[Key]int)
	entries := make([]Entry, 0)

	for _, recipe := range recipes {
		for _, line := range recipe.Lines {
			if !finite(line.Quantity) {
				return Report{}, fmt.Errorf("%w: %s (%s) in recipe %d", ErrMalformedQuantity, line.Name, line.Unit, recipe.ID)
			}

			key := Key{Name: line.Name, Unit: line.Unit}
			position, seen := index[key]
			if !seen {
				index[key] = len(entries)
				entries = append(entries, Entry{Key: key, Quantity: line.Quantity})
				continue
			}

			entries[position].Quantity += line.Quantity
			if !finite(entries[position].Quantity) {
				return Report{}, fmt.Errorf("%w: total for %s (%s) overflows", ErrMalformedQuantity, line.Name, line.Unit)
			}
		}
	}

	return Report{Entries: entries}, nil
}

// FormatQuantity prints q as the shortest decimal that round-trips to the
// same float64: 4, 2.5, 0.125, and 0.30000000000000004 for 0.1+0.2.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
