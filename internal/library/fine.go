package library

import "time"

const day = 24 * time.Hour

// CalculateFine charges finePerDay for every full day elapsed after due.
// Returning on or before the due date costs nothing.
func CalculateFine(due, at time.Time, finePerDay int) int {
	if !at.After(due) {
		return 0
	}
	days := int(at.Sub(due) / day)
	return days * finePerDay
}
