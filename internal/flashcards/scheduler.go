package flashcards

import (
	"time"
)

const (
	correctStep   = 0.1
	incorrectStep = 0.2
)

// Performance and difficulty buckets.
const (
	goodRatio = 0.8
	fairRatio = 0.5

	easyDifficulty   = 0.3
	mediumDifficulty = 0.6
)

// Base interval in days, rows good/fair/poor, columns easy/medium/hard. The
// good and fair rows are multiplied by review_count+1; the poor row is fixed
// so failed cards come back quickly no matter how often they were seen.
var intervalDays = [3][3]float64{
	{7, 4, 2},
	{3, 2, 1},
	{1, 1, 0.5},
}

const poorRow = 2

// Grade returns card after one review at now. It has no side effects.
func Grade(card Flashcard, wasCorrect bool, now time.Time) Flashcard {
	card.ReviewCount++
	if wasCorrect {
		card.CorrectCount++
		card.DifficultyScore = max(0.0, card.DifficultyScore-correctStep)
	} else {
		card.DifficultyScore = min(1.0, card.DifficultyScore+incorrectStep)
	}

	reviewed := now
	card.LastReviewed = &reviewed

	next := now.Add(Interval(card.CorrectRatio(), card.DifficultyScore, card.ReviewCount))
	card.NextReview = &next
	return card
}

// Interval selects the time until the next review.
func Interval(correctRatio, difficulty float64, reviewCount int) time.Duration {
	row := performanceBucket(correctRatio)
	days := intervalDays[row][difficultyBucket(difficulty)]
	if row != poorRow {
		days *= float64(reviewCount + 1)
	}
	return time.Duration(days * float64(24*time.Hour))
}

func performanceBucket(ratio float64) int {
	switch {
	case ratio >= goodRatio:
		return 0
	case ratio >= fairRatio:
		return 1
	default:
		return poorRow
	}
}

func difficultyBucket(d float64) int {
	switch {
	case d <= easyDifficulty:
		return 0
	case d <= mediumDifficulty:
		return 1
	default:
		return 2
	}
}
