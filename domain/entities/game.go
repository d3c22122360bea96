package entities

import (
	"fmt"
	"time"
)

// GridSize is the number of rows and columns on a squares board
const GridSize = 10

// Period indexes with a configured payout slot
const (
	PeriodQ1 = iota
	PeriodQ2
	PeriodQ3
	PeriodFinal

	ConfiguredPeriods
)

// Game represents a squares board attached to one sporting event
type Game struct {
	ID              int64     `db:"id"`
	HomeTeam        string    `db:"home_team"`
	AwayTeam        string    `db:"away_team"`
	Sport           string    `db:"sport"`
	StartTime       time.Time `db:"start_time"`
	EntryFee        int64     `db:"entry_fee"`
	Active          bool      `db:"active"`
	NumbersAssigned bool      `db:"numbers_assigned"`
	HomeNumbers     []int     `db:"home_numbers"` // column labels, nil until assigned
	AwayNumbers     []int     `db:"away_numbers"` // row labels, nil until assigned
	HomeScores      []int     `db:"home_scores"`
	AwayScores      []int     `db:"away_scores"`
	PayoutQ1        int64     `db:"payout_q1"`
	PayoutQ2        int64     `db:"payout_q2"`
	PayoutQ3        int64     `db:"payout_q3"`
	PayoutFinal     int64     `db:"payout_final"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// AssignmentOpensAt returns the earliest instant numbers may be drawn
func (g *Game) AssignmentOpensAt(leadTime time.Duration) time.Time {
	return g.StartTime.Add(-leadTime)
}

// HasValidNumbers reports whether both axes hold a permutation of 0..9.
// It is the storage-independent half of the numbers_assigned invariant.
func (g *Game) HasValidNumbers() bool {
	return ValidatePermutation(g.HomeNumbers) == nil && ValidatePermutation(g.AwayNumbers) == nil
}

// IsGridLocked reports whether boxes can no longer be sold
func (g *Game) IsGridLocked() bool {
	return !g.Active || g.NumbersAssigned
}

// CompletedPeriods returns the number of periods with a recorded score
func (g *Game) CompletedPeriods() int {
	return len(g.HomeScores)
}

// ScoreForPeriod returns the recorded score pair for a period
func (g *Game) ScoreForPeriod(period int) (home, away int, ok bool) {
	if period < 0 || period >= len(g.HomeScores) || period >= len(g.AwayScores) {
		return 0, 0, false
	}
	return g.HomeScores[period], g.AwayScores[period], true
}

// PayoutForPeriod returns the configured payout for a period index.
// Indexes past the final slot have no configured amount.
func (g *Game) PayoutForPeriod(period int) (int64, bool) {
	switch period {
	case PeriodQ1:
		return g.PayoutQ1, true
	case PeriodQ2:
		return g.PayoutQ2, true
	case PeriodQ3:
		return g.PayoutQ3, true
	case PeriodFinal:
		return g.PayoutFinal, true
	default:
		return 0, false
	}
}

// TotalConfiguredPayout sums the four payout slots
func (g *Game) TotalConfiguredPayout() int64 {
	return g.PayoutQ1 + g.PayoutQ2 + g.PayoutQ3 + g.PayoutFinal
}

// Matchup renders the game as "Away @ Home"
func (g *Game) Matchup() string {
	return fmt.Sprintf("%s @ %s", g.AwayTeam, g.HomeTeam)
}

// PeriodLabel names a period for descriptions and logs
func PeriodLabel(period int) string {
	switch period {
	case PeriodQ1:
		return "Q1"
	case PeriodQ2:
		return "Q2"
	case PeriodQ3:
		return "Q3"
	case PeriodFinal:
		return "Final"
	default:
		return fmt.Sprintf("Period %d", period+1)
	}
}
