package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// insertPayment сохраняет платёж. Если платёж с таким ID провайдера уже есть,
// возвращает его ID и false.
func insertPayment(ctx context.Context, tx *sql.Tx, p models.Payment) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO payments
			(user_id, provider_payment_id, amount, currency, status, plan_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT (provider_payment_id) DO NOTHING
		RETURNING id`,
		p.UserID, p.ProviderPaymentID, p.Amount, p.Currency, p.Status, p.Product, p.Metadata).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}
	err = tx.QueryRowContext(ctx, `SELECT id FROM payments WHERE provider_payment_id = $1`,
		p.ProviderPaymentID).Scan(&id)
	return id, false, err
}

func insertPlan(ctx context.Context, tx *sql.Tx, p models.Plan) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO plans
			(user_id, type, credits, credits_remaining, status, start_date, end_date, reset_date)
		VALUES ($1, $2, $3, $3, 'active', $4, $5, $6)
		RETURNING id`,
		p.UserID, p.Kind, p.Credits, p.StartDate, p.EndDate, p.ResetDate).Scan(&id)
	return id, err
}

func insertAddon(ctx context.Context, tx *sql.Tx, a models.Addon) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO addons
			(user_id, credits, credits_remaining, status, purchase_date, expiration_date)
		VALUES ($1, $2, $2, 'active', $3, $4)
		RETURNING id`,
		a.UserID, a.Credits, a.PurchaseDate, a.ExpirationDate).Scan(&id)
	return id, err
}

func allocateEntry(userID int64, kind models.SourceKind, sourceID int64, credits int) models.Transaction {
	return models.Transaction{
		UserID:     userID,
		Type:       models.TxAllocate,
		Amount:     credits,
		SourceKind: &kind,
		SourceID:   &sourceID,
	}
}

// AllocatePlan сохраняет подтверждённый платёж и в той же транзакции создаёт план
// с записью allocate. Повторный платёж с тем же ID провайдера ничего не начисляет.
func (s *Storage) AllocatePlan(ctx context.Context, p models.Payment, plan models.Plan) (*models.Allocation, error) {
	const op = "storage.AllocatePlan"

	res := &models.Allocation{SourceKind: models.SourcePlan}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		paymentID, created, err := insertPayment(ctx, tx, p)
		if err != nil {
			return err
		}
		res.PaymentID = paymentID
		if !created {
			res.Duplicate = true
			return nil
		}

		planID, err := insertPlan(ctx, tx, plan)
		if err != nil {
			return err
		}
		if _, err := appendTransaction(ctx, tx, allocateEntry(plan.UserID, models.SourcePlan, planID, plan.Credits)); err != nil {
			return err
		}
		res.SourceID = planID
		res.Credits = plan.Credits
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// AllocateAddon то же, что AllocatePlan, для add-on пакета.
func (s *Storage) AllocateAddon(ctx context.Context, p models.Payment, addon models.Addon) (*models.Allocation, error) {
	const op = "storage.AllocateAddon"

	res := &models.Allocation{SourceKind: models.SourceAddon}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		paymentID, created, err := insertPayment(ctx, tx, p)
		if err != nil {
			return err
		}
		res.PaymentID = paymentID
		if !created {
			res.Duplicate = true
			return nil
		}

		addonID, err := insertAddon(ctx, tx, addon)
		if err != nil {
			return err
		}
		if _, err := appendTransaction(ctx, tx, allocateEntry(addon.UserID, models.SourceAddon, addonID, addon.Credits)); err != nil {
			return err
		}
		res.SourceID = addonID
		res.Credits = addon.Credits
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// GrantFreeTier выдаёт пользователю бесплатный план, если его ещё не было.
// Возвращает план и признак того, что он создан сейчас.
func (s *Storage) GrantFreeTier(ctx context.Context, userID int64, credits int, now time.Time) (*models.Plan, bool, error) {
	const op = "storage.GrantFreeTier"

	var plan *models.Plan
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `INSERT INTO plans
				(user_id, type, credits, credits_remaining, status, start_date)
			VALUES ($1, 'freetier', $2, $2, 'active', $3)
			ON CONFLICT (user_id) WHERE type = 'freetier' DO NOTHING
			RETURNING `+planColumns, userID, credits, now)
		p, err := scanPlan(row)
		if errors.Is(err, sql.ErrNoRows) {
			row = tx.QueryRowContext(ctx, `SELECT `+planColumns+`
				FROM plans WHERE user_id = $1 AND type = 'freetier'`, userID)
			plan, err = scanPlan(row)
			return err
		}
		if err != nil {
			return err
		}
		if _, err := appendTransaction(ctx, tx, allocateEntry(userID, models.SourcePlan, p.ID, credits)); err != nil {
			return err
		}
		plan, created = p, true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return plan, created, nil
}

// GetPaymentByProviderID возвращает платёж по ID провайдера.
func (s *Storage) GetPaymentByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	const op = "storage.GetPaymentByProviderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var p models.Payment
	var metadata sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT id, user_id, provider_payment_id, amount, currency,
			status, plan_type, metadata, created_at
		FROM payments WHERE provider_payment_id = $1`, providerPaymentID).
		Scan(&p.ID, &p.UserID, &p.ProviderPaymentID, &p.Amount, &p.Currency,
			&p.Status, &p.Product, &metadata, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Metadata = metadata.String
	return &p, nil
}
