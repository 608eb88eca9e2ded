package economy

import (
	"time"

	"github.com/impify/impify/internal/calendar"
)

const (
	DefaultXP     = 5
	XPPerLevel    = 100
	LevelUpReward = 25
)

var xpTable = map[ActivityKind]int{
	ActivityLogin:               5,
	ActivityUpload:              15,
	ActivityFlashcardGeneration: 20,
	ActivityFlashcardReview:     5,
	ActivityChat:                10,
	ActivityFileChat:            10,
}

// XPFor returns the XP awarded for kind. Unknown kinds earn DefaultXP and
// report false.
func XPFor(kind ActivityKind) (int, bool) {
	xp, ok := xpTable[kind]
	if !ok {
		return DefaultXP, false
	}
	return xp, true
}

// LevelFor derives the level from total XP.
func LevelFor(xp int) int {
	return max(1, xp/XPPerLevel+1)
}

// XPToNextLevel is the XP still needed to reach the next level.
func XPToNextLevel(xp int) int {
	return LevelFor(xp)*XPPerLevel - xp
}

// MilestoneReward returns the token bonus for reaching streak, or 0.
func MilestoneReward(streak int) int {
	switch {
	case streak == 7:
		return 50
	case streak == 14:
		return 100
	case streak == 21:
		return 150
	case streak >= 30 && streak%30 == 0:
		return 200
	}
	return 0
}

// NextStreak applies the day-over-day streak transition. A today that
// precedes lastActive counts as a gap.
func NextStreak(streak int, lastActive *time.Time, today time.Time) int {
	if lastActive == nil {
		return 1
	}
	switch calendar.DaysBetween(*lastActive, today) {
	case 0:
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}

// Engine applies activities to an economy. It performs no I/O.
type Engine struct {
	cal *calendar.Calendar
}

func NewEngine(cal *calendar.Calendar) *Engine {
	return &Engine{cal: cal}
}

// RecordActivity returns econ after an activity of kind at now, together with
// the rewards it produced. A streak milestone is paid only on the call that
// moves the streak onto it.
func (e *Engine) RecordActivity(econ UserEconomy, kind ActivityKind, now time.Time) (UserEconomy, Rewards) {
	today := e.cal.Today(now)
	var rw Rewards

	prevStreak := econ.Streak
	econ.Streak = NextStreak(econ.Streak, econ.LastActiveDate, today)
	econ.LastActiveDate = &today

	rw.XPGained, _ = XPFor(kind)
	econ.XP += rw.XPGained

	lvl := LevelFor(econ.XP)
	if lvl > econ.Level {
		rw.LevelUp = true
		rw.LevelUpTokens = LevelUpReward
	}
	econ.Level = lvl

	if econ.Streak != prevStreak {
		if bonus := MilestoneReward(econ.Streak); bonus > 0 {
			rw.StreakMilestone = econ.Streak
			rw.MilestoneTokens = bonus
		}
	}

	econ.Tokens += rw.LevelUpTokens + rw.MilestoneTokens
	return econ, rw
}
