package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

const planColumns = `id, user_id, type, credits, credits_remaining, status,
	start_date, end_date, reset_date, created_at`

const addonColumns = `id, user_id, credits, credits_remaining, status,
	purchase_date, expiration_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var p models.Plan
	var endDate, resetDate sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.Kind, &p.Credits, &p.CreditsRemaining, &p.Status,
		&p.StartDate, &endDate, &resetDate, &p.CreatedAt); err != nil {
		return nil, err
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	if resetDate.Valid {
		p.ResetDate = &resetDate.Time
	}
	return &p, nil
}

func scanAddon(row rowScanner) (*models.Addon, error) {
	var a models.Addon
	if err := row.Scan(&a.ID, &a.UserID, &a.Credits, &a.CreditsRemaining, &a.Status,
		&a.PurchaseDate, &a.ExpirationDate); err != nil {
		return nil, err
	}
	return &a, nil
}

// SumPlanCredits суммирует остаток по активным планам пользователя.
// Дата окончания плана намеренно не проверяется.
func (s *Storage) SumPlanCredits(ctx context.Context, userID int64) (int, error) {
	const op = "storage.SumPlanCredits"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sum int
	err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(credits_remaining), 0)
		FROM plans WHERE user_id = $1 AND status = 'active'`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

// SumAddonCredits суммирует остаток по активным неистёкшим add-on
// и возвращает ближайшую дату истечения среди add-on с ненулевым остатком.
func (s *Storage) SumAddonCredits(ctx context.Context, userID int64, now time.Time) (int, *time.Time, error) {
	const op = "storage.SumAddonCredits"
	select {
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sum int
	var next sql.NullTime
	err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(credits_remaining), 0),
			MIN(expiration_date) FILTER (WHERE credits_remaining > 0)
		FROM addons
		WHERE user_id = $1 AND status = 'active' AND expiration_date >= $2`,
		userID, now).Scan(&sum, &next)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", op, err)
	}
	if !next.Valid {
		return sum, nil, nil
	}
	return sum, &next.Time, nil
}

// HasActivePlanOfKind проверяет наличие активного плана одного из указанных видов.
func (s *Storage) HasActivePlanOfKind(ctx context.Context, userID int64, kinds []models.PlanKind) (bool, error) {
	const op = "storage.HasActivePlanOfKind"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM plans
			WHERE user_id = $1 AND status = 'active' AND type = ANY($2)
		)`, userID, names).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ActivePlan возвращает самый новый активный план пользователя или nil.
func (s *Storage) ActivePlan(ctx context.Context, userID int64) (*models.Plan, error) {
	const op = "storage.ActivePlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+planColumns+`
		FROM plans
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// GetPlan возвращает план пользователя по ID.
func (s *Storage) GetPlan(ctx context.Context, userID, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"

	row := s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1 AND user_id = $2`, id, userID)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// GetAddon возвращает add-on пользователя по ID.
func (s *Storage) GetAddon(ctx context.Context, userID, id int64) (*models.Addon, error) {
	const op = "storage.GetAddon"

	row := s.DB.QueryRowContext(ctx, `SELECT `+addonColumns+` FROM addons WHERE id = $1 AND user_id = $2`, id, userID)
	addon, err := scanAddon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addon, nil
}
