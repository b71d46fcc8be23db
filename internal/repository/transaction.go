package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tallybook/tally/internal/model"
)

// AppendTransaction adds a transaction to the end of a user's ledger.
// The user row is locked for the duration so mutations on one ledger are serialized.
func (r *Repository) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	err := pgx.BeginFunc(ctx, r.pool, func(dbtx pgx.Tx) error {
		if err := lockUser(ctx, dbtx, tx.UserID); err != nil {
			return err
		}

		query := `
			INSERT INTO transactions (id, user_id, text, amount, kind, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err := dbtx.Exec(ctx, query,
			tx.ID,
			tx.UserID,
			tx.Text,
			tx.Amount,
			string(tx.Kind),
			tx.Category,
			tx.CreatedAt,
		)
		return err
	})

	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// ListTransactions returns a user's transactions in insertion order.
// The existence check and the read share one snapshot.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	var txs []*model.Transaction

	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, r.pool, opts, func(dbtx pgx.Tx) error {
		var exists bool
		if err := dbtx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		query := `
			SELECT id, user_id, text, amount, kind, category, created_at
			FROM transactions
			WHERE user_id = $1
			ORDER BY seq ASC
		`

		rows, err := dbtx.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		txs = make([]*model.Transaction, 0)
		for rows.Next() {
			tx, err := scanTransaction(rows)
			if err != nil {
				return fmt.Errorf("failed to scan transaction: %w", err)
			}
			txs = append(txs, tx)
		}

		return rows.Err()
	})

	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}

// DeleteTransaction removes one transaction from a user's ledger.
// A transaction owned by another user is reported as ErrTransactionNotFound.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(dbtx pgx.Tx) error {
		if err := lockUser(ctx, dbtx, userID); err != nil {
			return err
		}

		result, err := dbtx.Exec(ctx,
			`DELETE FROM transactions WHERE id = $1 AND user_id = $2`,
			transactionID, userID,
		)
		if err != nil {
			return err
		}

		if result.RowsAffected() == 0 {
			return ErrTransactionNotFound
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrTransactionNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return nil
}

// lockUser takes a row lock on the user, failing with ErrUserNotFound if absent.
func lockUser(ctx context.Context, dbtx pgx.Tx, userID string) error {
	var id string
	err := dbtx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// scanTransaction scans a row from pgx.Rows into a Transaction.
func scanTransaction(rows pgx.Rows) (*model.Transaction, error) {
	var tx model.Transaction
	var kind string

	err := rows.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Text,
		&tx.Amount,
		&kind,
		&tx.Category,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = model.Kind(kind)
	return &tx, nil
}
