package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// Запросы фиксируют остаток до обнуления: подзапрос блокирует строки,
// а UPDATE ... FROM возвращает прежнее значение.
const (
	expirePlansQuery = `UPDATE plans p
		SET status = 'expired', credits_remaining = 0
		FROM (
			SELECT id, credits_remaining FROM plans
			WHERE status = 'active' AND end_date IS NOT NULL AND end_date < $1
			FOR UPDATE
		) old
		WHERE p.id = old.id
		RETURNING p.id, p.user_id, old.credits_remaining`

	expireAddonsQuery = `UPDATE addons a
		SET status = 'expired', credits_remaining = 0
		FROM (
			SELECT id, credits_remaining FROM addons
			WHERE status = 'active' AND expiration_date < $1
			FOR UPDATE
		) old
		WHERE a.id = old.id
		RETURNING a.id, a.user_id, old.credits_remaining`
)

// ExpireSources переводит в expired планы и add-on с прошедшим сроком,
// обнуляет их остаток и пишет в журнал expire на сгоревшую сумму.
// Всё выполняется в одной транзакции.
func (s *Storage) ExpireSources(ctx context.Context, now time.Time) ([]models.ExpiredSource, error) {
	const op = "storage.ExpireSources"

	var expired []models.ExpiredSource
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		plans, err := expireRows(ctx, tx, expirePlansQuery, models.SourcePlan, now)
		if err != nil {
			return err
		}
		addons, err := expireRows(ctx, tx, expireAddonsQuery, models.SourceAddon, now)
		if err != nil {
			return err
		}
		expired = append(plans, addons...)

		for _, e := range expired {
			if e.Forfeited == 0 {
				continue
			}
			entry := models.Transaction{
				UserID:     e.UserID,
				Type:       models.TxExpire,
				Amount:     -e.Forfeited,
				SourceKind: &e.SourceKind,
				SourceID:   &e.SourceID,
			}
			if _, err := appendTransaction(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expired, nil
}

func expireRows(ctx context.Context, tx *sql.Tx, query string, kind models.SourceKind, now time.Time) ([]models.ExpiredSource, error) {
	rows, err := tx.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ExpiredSource
	for rows.Next() {
		e := models.ExpiredSource{SourceKind: kind}
		if err := rows.Scan(&e.SourceID, &e.UserID, &e.Forfeited); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
