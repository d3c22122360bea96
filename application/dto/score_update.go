package dto

import "time"

// ScoreUpdateDTO is one period's final score from the external feed
type ScoreUpdateDTO struct {
	GameID     int64
	Period     int
	HomeScore  int
	AwayScore  int
	ReceivedAt time.Time
}
