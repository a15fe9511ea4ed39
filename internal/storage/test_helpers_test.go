package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/credit-ledger/internal/migrations"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users (email) VALUES ($1) RETURNING id`,
		uuid.NewString()+"@example.com").Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePlan создает план с заданным остатком и датой создания
func (f *TestDataFactory) CreatePlan(t *testing.T, userID int64, kind models.PlanKind, remaining int,
	endDate *time.Time, createdAt time.Time) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO plans
			(user_id, type, credits, credits_remaining, status, start_date, end_date, reset_date, created_at)
		VALUES ($1, $2, $3, $3, 'active', $4, $5, $5, $4) RETURNING id`,
		userID, kind, remaining, createdAt, endDate).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateAddon создает add-on с заданным остатком
func (f *TestDataFactory) CreateAddon(t *testing.T, userID int64, remaining int, purchasedAt, expiresAt time.Time) int64 {
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO addons
			(user_id, credits, credits_remaining, status, purchase_date, expiration_date)
		VALUES ($1, $2, $2, 'active', $3, $4) RETURNING id`,
		userID, remaining, purchasedAt, expiresAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateImage создает запись изображения
func (f *TestDataFactory) CreateImage(t *testing.T, userID int64) int64 {
	id, err := f.storage.CreateImage(context.Background(), models.Image{
		UserID:    userID,
		ObjectKey: "uploads/" + uuid.NewString() + ".jpg",
		MimeType:  "image/jpeg",
	})
	require.NoError(t, err)
	return id
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// PlanRemaining возвращает остаток плана
func (v *TestVerification) PlanRemaining(t *testing.T, id int64) int {
	var remaining int
	require.NoError(t, v.storage.DB.QueryRow(`SELECT credits_remaining FROM plans WHERE id = $1`, id).Scan(&remaining))
	return remaining
}

// AddonRemaining возвращает остаток add-on
func (v *TestVerification) AddonRemaining(t *testing.T, id int64) int {
	var remaining int
	require.NoError(t, v.storage.DB.QueryRow(`SELECT credits_remaining FROM addons WHERE id = $1`, id).Scan(&remaining))
	return remaining
}

// CountTransactions считает записи журнала пользователя заданного типа
func (v *TestVerification) CountTransactions(t *testing.T, userID int64, typ models.TransactionType) int {
	var count int
	require.NoError(t, v.storage.DB.QueryRow(`SELECT COUNT(*) FROM credit_transactions
		WHERE user_id = $1 AND type = $2`, userID, typ).Scan(&count))
	return count
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "failed to apply migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}

	return storage, cleanup
}
