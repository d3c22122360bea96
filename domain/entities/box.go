package entities

import (
	"time"

	"github.com/google/uuid"
)

// Box is one purchasable cell of a game's grid
type Box struct {
	ID          int64      `db:"id"`
	GameID      int64      `db:"game_id"`
	Row         int        `db:"row_index"`
	Col         int        `db:"col_index"`
	OwnerID     *uuid.UUID `db:"owner_id"`
	PurchasedAt *time.Time `db:"purchased_at"`
}

// IsOwned returns true once the box has been sold
func (b *Box) IsOwned() bool {
	return b.OwnerID != nil
}

// Position returns the box's grid coordinates
func (b *Box) Position() GridPosition {
	return GridPosition{Row: b.Row, Col: b.Col}
}
