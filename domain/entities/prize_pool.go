package entities

// PrizePool is the informational accounting summary for a game
type PrizePool struct {
	GameID       int64 `json:"game_id"`
	SoldBoxes    int64 `json:"sold_boxes"`
	EntryFee     int64 `json:"entry_fee"`
	TotalRevenue int64 `json:"total_revenue"`
	PrizePool    int64 `json:"prize_pool"`
	PlatformFee  int64 `json:"platform_fee"`
}

// CalculatePrizePool splits box revenue into pool and platform fee.
// The pool is floored; the remainder goes to the fee.
func CalculatePrizePool(soldBoxes, entryFee, feePercent int64) PrizePool {
	revenue := soldBoxes * entryFee
	pool := revenue * (100 - feePercent) / 100
	return PrizePool{
		SoldBoxes:    soldBoxes,
		EntryFee:     entryFee,
		TotalRevenue: revenue,
		PrizePool:    pool,
		PlatformFee:  revenue - pool,
	}
}
