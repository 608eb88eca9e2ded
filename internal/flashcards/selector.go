package flashcards

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultDueLimit caps a study session when the caller gives no usable limit.
const DefaultDueLimit = 20

// ParseLimit turns a caller-supplied limit into a positive count. Empty,
// non-numeric and non-positive input yields def.
func ParseLimit(raw string, def int) int {
	if def < 1 {
		def = DefaultDueLimit
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// CompareDue orders cards for study: harder first, then the most overdue,
// with never-reviewed cards ahead of any scheduled one. Creation time and id
// break the remaining ties so the order is total.
func CompareDue(a, b Flashcard) int {
	if a.DifficultyScore != b.DifficultyScore {
		if a.DifficultyScore > b.DifficultyScore {
			return -1
		}
		return 1
	}
	switch {
	case a.NextReview == nil && b.NextReview != nil:
		return -1
	case a.NextReview != nil && b.NextReview == nil:
		return 1
	case a.NextReview != nil && b.NextReview != nil:
		if c := a.NextReview.Compare(*b.NextReview); c != 0 {
			return c
		}
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// SelectDue filters cards due at now, orders them with CompareDue and keeps
// at most limit.
func SelectDue(cards []Flashcard, now time.Time, limit int) []Flashcard {
	due := make([]Flashcard, 0, len(cards))
	for _, c := range cards {
		if c.IsDue(now) {
			due = append(due, c)
		}
	}
	slices.SortFunc(due, CompareDue)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
