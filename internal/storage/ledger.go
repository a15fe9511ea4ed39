package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/services/credits"
)

const transactionColumns = `id, user_id, type, amount, source_kind, source_id, operation_id, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var kind sql.NullString
	var sourceID, operationID sql.NullInt64
	if err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &kind, &sourceID, &operationID, &t.CreatedAt); err != nil {
		return nil, err
	}
	if kind.Valid {
		k := models.SourceKind(kind.String)
		t.SourceKind = &k
	}
	if sourceID.Valid {
		t.SourceID = &sourceID.Int64
	}
	if operationID.Valid {
		t.OperationID = &operationID.Int64
	}
	return &t, nil
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func appendTransaction(ctx context.Context, q execer, t models.Transaction) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `INSERT INTO credit_transactions
			(user_id, type, amount, source_kind, source_id, operation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		t.UserID, t.Type, t.Amount, t.SourceKind, t.SourceID, t.OperationID).Scan(&id)
	return id, err
}

// ListTransactions возвращает журнал пользователя, новые записи первыми.
func (s *Storage) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	const op = "storage.ListTransactions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+transactionColumns+`
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]*models.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// txStore реализует операции движка кредитов внутри одной транзакции.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) OldestSpendablePlan(ctx context.Context, userID int64, now time.Time) (*models.Plan, error) {
	const op = "storage.OldestSpendablePlan"

	row := t.tx.QueryRowContext(ctx, `SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1
			AND status = 'active'
			AND credits_remaining > 0
			AND (end_date IS NULL OR end_date >= $2)
		ORDER BY created_at ASC, id ASC
		LIMIT 1`, userID, now)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

func (t *txStore) OldestSpendableAddon(ctx context.Context, userID int64, now time.Time) (*models.Addon, error) {
	const op = "storage.OldestSpendableAddon"

	row := t.tx.QueryRowContext(ctx, `SELECT `+addonColumns+`
		FROM addons
		WHERE user_id = $1
			AND status = 'active'
			AND credits_remaining > 0
			AND expiration_date >= $2
		ORDER BY purchase_date ASC, id ASC
		LIMIT 1`, userID, now)
	addon, err := scanAddon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addon, nil
}

// updateRemaining выполняет условный UPDATE ... RETURNING credits_remaining.
// Отсутствие строки означает, что условие не выполнено.
func (t *txStore) updateRemaining(ctx context.Context, op, query string, args ...any) (int, bool, error) {
	var remaining int
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return remaining, true, nil
}

func (t *txStore) DecrementPlan(ctx context.Context, id int64, now time.Time) (int, bool, error) {
	return t.updateRemaining(ctx, "storage.DecrementPlan", `UPDATE plans
		SET credits_remaining = credits_remaining - 1
		WHERE id = $1
			AND status = 'active'
			AND credits_remaining > 0
			AND (end_date IS NULL OR end_date >= $2)
		RETURNING credits_remaining`, id, now)
}

func (t *txStore) DecrementAddon(ctx context.Context, id int64, now time.Time) (int, bool, error) {
	return t.updateRemaining(ctx, "storage.DecrementAddon", `UPDATE addons
		SET credits_remaining = credits_remaining - 1
		WHERE id = $1
			AND status = 'active'
			AND credits_remaining > 0
			AND expiration_date >= $2
		RETURNING credits_remaining`, id, now)
}

func (t *txStore) IncrementPlan(ctx context.Context, userID, id int64) (int, bool, error) {
	return t.updateRemaining(ctx, "storage.IncrementPlan", `UPDATE plans
		SET credits_remaining = credits_remaining + 1
		WHERE id = $1 AND user_id = $2
		RETURNING credits_remaining`, id, userID)
}

func (t *txStore) IncrementAddon(ctx context.Context, userID, id int64) (int, bool, error) {
	return t.updateRemaining(ctx, "storage.IncrementAddon", `UPDATE addons
		SET credits_remaining = credits_remaining + 1
		WHERE id = $1 AND user_id = $2
		RETURNING credits_remaining`, id, userID)
}

func (t *txStore) LatestConsume(ctx context.Context, userID, operationID int64) (*models.Transaction, error) {
	const op = "storage.LatestConsume"

	row := t.tx.QueryRowContext(ctx, `SELECT `+transactionColumns+`
		FROM credit_transactions
		WHERE user_id = $1 AND operation_id = $2 AND type = 'consume'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID, operationID)
	tr, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tr, nil
}

func (t *txStore) RefundExists(ctx context.Context, userID, operationID int64) (bool, error) {
	const op = "storage.RefundExists"

	var exists bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM credit_transactions
			WHERE user_id = $1 AND operation_id = $2 AND type = 'refund'
		)`, userID, operationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// AppendTransaction добавляет запись в журнал. Нарушение уникальности возврата
// по операции возвращается как credits.ErrAlreadyRefunded.
func (t *txStore) AppendTransaction(ctx context.Context, tr models.Transaction) (int64, error) {
	const op = "storage.AppendTransaction"

	id, err := appendTransaction(ctx, t.tx, tr)
	if err != nil {
		if tr.Type == models.TxRefund && isUniqueViolation(err) {
			return 0, credits.ErrAlreadyRefunded
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
