package repository

import (
	"context"
	"errors"
	"fmt"

	"squares/database"
	"squares/domain/entities"
	"squares/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// accountRepository implements interfaces.AccountRepository over profiles
type accountRepository struct {
	q Queryable
}

// NewAccountRepository creates an account repository on the pool
func NewAccountRepository(db *database.DB) interfaces.AccountRepository {
	return &accountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates an account repository bound to a transaction
func newAccountRepositoryWithTx(tx Queryable) interfaces.AccountRepository {
	return &accountRepository{q: tx}
}

// Create inserts a profile
func (r *accountRepository) Create(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO profiles (id, username, hotcoin_balance, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.HotcoinBalance,
		account.IsAdmin,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return classify(err, "failed to create profile %s", account.ID)
	}
	return nil
}

// GetByID retrieves a profile
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.get(ctx, `
		SELECT id, username, hotcoin_balance, is_admin, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id)
}

// GetByIDForUpdate retrieves a profile and locks its row
func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Account, error) {
	return r.get(ctx, `
		SELECT id, username, hotcoin_balance, is_admin, created_at, updated_at
		FROM profiles
		WHERE id = $1
		FOR UPDATE
	`, id)
}

func (r *accountRepository) get(ctx context.Context, query string, id uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	err := r.q.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Username,
		&account.HotcoinBalance,
		&account.IsAdmin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get profile %s", id)
	}
	return &account, nil
}

// UpdateBalance sets a profile's balance
func (r *accountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error {
	query := `
		UPDATE profiles
		SET hotcoin_balance = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, newBalance)
	if err != nil {
		return classify(err, "failed to update balance for profile %s", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", entities.ErrAccountNotFound, id)
	}
	return nil
}
