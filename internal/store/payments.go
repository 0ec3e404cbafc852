package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/manyeka-petros/malonda-web-app/internal/models"
	"github.com/manyeka-petros/malonda-web-app/internal/util"
)

// CreateTransaction inserts a local mirror of an external payment attempt
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, tx_ref, amount, currency, status, email, first_name, last_name, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, tx, query,
		tx.UserID, tx.TxRef, tx.Amount, tx.Currency, tx.Status,
		tx.Email, tx.FirstName, tx.LastName, tx.Description)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction %s: %w", tx.TxRef, util.ErrConflict)
	}
	return err
}

// GetTransactionByTxRef retrieves a transaction by its payment reference
func (s *Store) GetTransactionByTxRef(ctx context.Context, txRef string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.GetContext(ctx, &tx, "SELECT * FROM transactions WHERE tx_ref = $1", txRef)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", txRef, util.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateTransactionStatus updates a transaction's status by tx_ref
func (s *Store) UpdateTransactionStatus(ctx context.Context, txRef, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET status = $1, updated_at = NOW() WHERE tx_ref = $2",
		status, txRef)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", txRef, util.ErrNotFound)
	}
	return nil
}

// GetTransactionsByUserID retrieves a user's transactions, newest first
func (s *Store) GetTransactionsByUserID(ctx context.Context, userID int64) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM transactions WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return txs, err
}
