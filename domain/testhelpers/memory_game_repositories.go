package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"squares/domain/entities"

	"github.com/google/uuid"
)

// MemoryGameRepository implements GameRepository with the same conditional
// writes as the SQL version
type MemoryGameRepository struct {
	mu     sync.Mutex
	games  map[int64]*entities.Game
	nextID int64
}

// NewMemoryGameRepository creates an empty game store
func NewMemoryGameRepository() *MemoryGameRepository {
	return &MemoryGameRepository{games: make(map[int64]*entities.Game)}
}

func copyGame(g *entities.Game) *entities.Game {
	copied := *g
	copied.HomeNumbers = append([]int(nil), g.HomeNumbers...)
	copied.AwayNumbers = append([]int(nil), g.AwayNumbers...)
	copied.HomeScores = append([]int(nil), g.HomeScores...)
	copied.AwayScores = append([]int(nil), g.AwayScores...)
	return &copied
}

func (r *MemoryGameRepository) Create(ctx context.Context, game *entities.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if game.ID == 0 {
		r.nextID++
		game.ID = r.nextID
	} else if game.ID > r.nextID {
		r.nextID = game.ID
	}
	r.games[game.ID] = copyGame(game)
	return nil
}

func (r *MemoryGameRepository) GetByID(ctx context.Context, id int64) (*entities.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	return copyGame(game), nil
}

func (r *MemoryGameRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Game, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryGameRepository) ListNeedingAssignment(ctx context.Context, cutoff time.Time) ([]*entities.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Game
	for _, game := range r.games {
		if game.Active && !game.NumbersAssigned && !game.StartTime.After(cutoff) {
			out = append(out, copyGame(game))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryGameRepository) AssignNumbers(ctx context.Context, gameID int64, homeNumbers, awayNumbers []int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[gameID]
	if !ok || !game.Active || game.NumbersAssigned {
		return false, nil
	}
	game.HomeNumbers = append([]int(nil), homeNumbers...)
	game.AwayNumbers = append([]int(nil), awayNumbers...)
	game.NumbersAssigned = true
	return true, nil
}

func (r *MemoryGameRepository) AppendPeriodScore(ctx context.Context, gameID int64, period, homeScore, awayScore int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[gameID]
	if !ok || len(game.HomeScores) != period {
		return false, nil
	}
	game.HomeScores = append(game.HomeScores, homeScore)
	game.AwayScores = append(game.AwayScores, awayScore)
	return true, nil
}

func (r *MemoryGameRepository) Deactivate(ctx context.Context, gameID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[gameID]
	if !ok {
		return entities.ErrGameNotFound
	}
	game.Active = false
	return nil
}

// MemoryBoxRepository implements BoxRepository; owners are set at most once
type MemoryBoxRepository struct {
	mu    sync.Mutex
	boxes map[int64][]*entities.Box
}

// NewMemoryBoxRepository creates an empty box store
func NewMemoryBoxRepository() *MemoryBoxRepository {
	return &MemoryBoxRepository{boxes: make(map[int64][]*entities.Box)}
}

func (r *MemoryBoxRepository) CreateGrid(ctx context.Context, gameID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	grid := make([]*entities.Box, 0, entities.GridSize*entities.GridSize)
	for row := 0; row < entities.GridSize; row++ {
		for col := 0; col < entities.GridSize; col++ {
			grid = append(grid, &entities.Box{
				ID:     gameID*1000 + int64(row*entities.GridSize+col),
				GameID: gameID,
				Row:    row,
				Col:    col,
			})
		}
	}
	r.boxes[gameID] = grid
	return nil
}

func (r *MemoryBoxRepository) find(gameID int64, row, col int) *entities.Box {
	for _, box := range r.boxes[gameID] {
		if box.Row == row && box.Col == col {
			return box
		}
	}
	return nil
}

func (r *MemoryBoxRepository) GetByPosition(ctx context.Context, gameID int64, row, col int) (*entities.Box, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	box := r.find(gameID, row, col)
	if box == nil {
		return nil, nil
	}
	copied := *box
	return &copied, nil
}

func (r *MemoryBoxRepository) ListByGame(ctx context.Context, gameID int64) ([]*entities.Box, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Box, 0, len(r.boxes[gameID]))
	for _, box := range r.boxes[gameID] {
		copied := *box
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryBoxRepository) CountSold(ctx context.Context, gameID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sold int64
	for _, box := range r.boxes[gameID] {
		if box.IsOwned() {
			sold++
		}
	}
	return sold, nil
}

func (r *MemoryBoxRepository) AssignOwner(ctx context.Context, gameID int64, row, col int, ownerID uuid.UUID, purchasedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	box := r.find(gameID, row, col)
	if box == nil || box.IsOwned() {
		return false, nil
	}
	owner := ownerID
	at := purchasedAt
	box.OwnerID = &owner
	box.PurchasedAt = &at
	return true, nil
}
