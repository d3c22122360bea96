package entities

import (
	"time"

	"github.com/google/uuid"
)

// Account is a player profile holding a HotCoin balance
type Account struct {
	ID             uuid.UUID `db:"id"`
	Username       string    `db:"username"`
	HotcoinBalance int64     `db:"hotcoin_balance"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// CanAfford checks if the account holds at least amount
func (a *Account) CanAfford(amount int64) bool {
	return a.HotcoinBalance >= amount
}
