package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// CreateImage сохраняет сведения о загруженном изображении.
func (s *Storage) CreateImage(ctx context.Context, img models.Image) (int64, error) {
	const op = "storage.CreateImage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.DB.QueryRowContext(ctx, `INSERT INTO images (user_id, object_key, mime_type)
		VALUES ($1, $2, $3) RETURNING id`, img.UserID, img.ObjectKey, img.MimeType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetImage возвращает изображение пользователя по ID.
func (s *Storage) GetImage(ctx context.Context, userID, id int64) (*models.Image, error) {
	const op = "storage.GetImage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var img models.Image
	err := s.DB.QueryRowContext(ctx, `SELECT id, user_id, object_key, mime_type, created_at
		FROM images WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&img.ID, &img.UserID, &img.ObjectKey, &img.MimeType, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &img, nil
}

// CreateAnalysis создаёт анализ в статусе pending и возвращает его ID.
func (s *Storage) CreateAnalysis(ctx context.Context, userID, imageID int64) (int64, error) {
	const op = "storage.CreateAnalysis"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.DB.QueryRowContext(ctx, `INSERT INTO analyses (user_id, image_id, status)
		VALUES ($1, $2, 'pending') RETURNING id`, userID, imageID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// SetAnalysisStatus меняет статус анализа.
func (s *Storage) SetAnalysisStatus(ctx context.Context, id int64, status models.AnalysisStatus) error {
	const op = "storage.SetAnalysisStatus"

	res, err := s.DB.ExecContext(ctx, `UPDATE analyses SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// CompleteAnalysis сохраняет диагноз и переводит анализ в completed.
func (s *Storage) CompleteAnalysis(ctx context.Context, id int64, diagnosis string, completedAt time.Time) error {
	const op = "storage.CompleteAnalysis"

	res, err := s.DB.ExecContext(ctx, `UPDATE analyses
		SET status = 'completed', diagnosis = $1, completed_at = $2
		WHERE id = $3`, diagnosis, completedAt, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// GetAnalysis возвращает анализ пользователя по ID.
func (s *Storage) GetAnalysis(ctx context.Context, userID, id int64) (*models.Analysis, error) {
	const op = "storage.GetAnalysis"

	var a models.Analysis
	var diagnosis sql.NullString
	var completedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, `SELECT id, user_id, image_id, status, diagnosis, created_at, completed_at
		FROM analyses WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&a.ID, &a.UserID, &a.ImageID, &a.Status, &diagnosis, &a.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if diagnosis.Valid {
		a.Diagnosis = &diagnosis.String
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

// ListAnalyses возвращает страницу анализов пользователя вместе с изображениями,
// новые первыми.
func (s *Storage) ListAnalyses(ctx context.Context, userID int64, limit, offset int) ([]*models.Analysis, error) {
	const op = "storage.ListAnalyses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT a.id, a.user_id, a.image_id, a.status, a.diagnosis,
			a.created_at, a.completed_at,
			i.id, i.user_id, i.object_key, i.mime_type, i.created_at
		FROM analyses a
		JOIN images i ON i.id = a.image_id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res := make([]*models.Analysis, 0, limit)
	for rows.Next() {
		var (
			a           models.Analysis
			img         models.Image
			diagnosis   sql.NullString
			completedAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ImageID, &a.Status, &diagnosis, &a.CreatedAt, &completedAt,
			&img.ID, &img.UserID, &img.ObjectKey, &img.MimeType, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if diagnosis.Valid {
			a.Diagnosis = &diagnosis.String
		}
		if completedAt.Valid {
			a.CompletedAt = &completedAt.Time
		}
		a.Image = &img
		res = append(res, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
