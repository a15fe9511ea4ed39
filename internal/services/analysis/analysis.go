// Package analysis выполняет платный анализ изображения: списывает кредит
// до начала работы и возвращает его, если работа не завершилась успешно.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
	"github.com/magabrotheeeer/credit-ledger/internal/services/credits"
)

// Repository хранение изображений и анализов.
type Repository interface {
	CreateImage(ctx context.Context, img models.Image) (int64, error)
	GetImage(ctx context.Context, userID, id int64) (*models.Image, error)
	CreateAnalysis(ctx context.Context, userID, imageID int64) (int64, error)
	SetAnalysisStatus(ctx context.Context, id int64, status models.AnalysisStatus) error
	CompleteAnalysis(ctx context.Context, id int64, diagnosis string, completedAt time.Time) error
	GetAnalysis(ctx context.Context, userID, id int64) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, userID int64, limit, offset int) ([]*models.Analysis, error)
}

// Credits списание и возврат кредита по операции.
type Credits interface {
	Consume(ctx context.Context, userID int64, operationID *int64) (*models.ConsumeResult, error)
	Refund(ctx context.Context, userID, operationID int64) (*models.RefundResult, error)
}

// ImageStore объектное хранилище изображений.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ErrUnsupportedImage формат изображения не поддерживается.
var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Analyzer модель анализа.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*models.Diagnosis, error)
}

// Result итог успешного анализа.
type Result struct {
	AnalysisID       int64             `json:"analysis_id"`
	Diagnosis        *models.Diagnosis `json:"diagnosis"`
	RemainingCredits int               `json:"remaining_credits"`
	IsFreeTier       bool              `json:"is_free_tier"`
}

// Service оркестратор анализа.
type Service struct {
	repo     Repository
	credits  Credits
	images   ImageStore
	analyzer Analyzer
	log      *slog.Logger
	now      func() time.Time
}

// New создает оркестратор.
func New(repo Repository, creditsSvc Credits, images ImageStore, analyzer Analyzer, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		credits:  creditsSvc,
		images:   images,
		analyzer: analyzer,
		log:      log,
		now:      time.Now,
	}
}

// Upload сохраняет изображение в хранилище и регистрирует его за пользователем.
func (s *Service) Upload(ctx context.Context, userID int64, data []byte, mimeType string) (*models.Image, error) {
	const op = "analysis.Upload"

	ext, ok := imageExt[mimeType]
	if !ok {
		return nil, ErrUnsupportedImage
	}
	img := models.Image{
		UserID:    userID,
		ObjectKey: fmt.Sprintf("uploads/%d/%s%s", userID, uuid.NewString(), ext),
		MimeType:  mimeType,
		CreatedAt: s.now(),
	}
	if err := s.images.Put(ctx, img.ObjectKey, data, mimeType); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.repo.CreateImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	img.ID = id
	return &img, nil
}

// Run запускает анализ изображения imageID пользователя.
//
// Кредит списывается один раз, ссылкой операции служит ID анализа.
// При нехватке кредитов анализ помечается failed и возвращается
// credits.ErrInsufficientCredits. Любая ошибка после успешного списания
// приводит к одному возврату кредита.
func (s *Service) Run(ctx context.Context, userID, imageID int64) (*Result, error) {
	const op = "analysis.Run"
	log := s.log.With(sl.Op(op), sl.UserID(userID), slog.Int64("image_id", imageID))

	img, err := s.repo.GetImage(ctx, userID, imageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	analysisID, err := s.repo.CreateAnalysis(ctx, userID, imageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.Int64("analysis_id", analysisID))

	consumed, err := s.credits.Consume(ctx, userID, &analysisID)
	if err != nil {
		s.markFailed(ctx, log, analysisID)
		if errors.Is(err, credits.ErrInsufficientCredits) {
			log.Info("analysis rejected: insufficient credits")
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	diagnosis, err := s.process(ctx, analysisID, img)
	if err != nil {
		log.Error("analysis failed, refunding credit", sl.Err(err))
		s.refund(ctx, log, userID, analysisID)
		s.markFailed(ctx, log, analysisID)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("analysis completed", slog.Int("remaining_credits", consumed.RemainingCredits))
	return &Result{
		AnalysisID:       analysisID,
		Diagnosis:        diagnosis,
		RemainingCredits: consumed.RemainingCredits,
		IsFreeTier:       consumed.IsFreeTier,
	}, nil
}

func (s *Service) process(ctx context.Context, analysisID int64, img *models.Image) (*models.Diagnosis, error) {
	if err := s.repo.SetAnalysisStatus(ctx, analysisID, models.AnalysisProcessing); err != nil {
		return nil, err
	}

	data, err := s.images.Get(ctx, img.ObjectKey)
	if err != nil {
		return nil, err
	}

	diagnosis, err := s.analyzer.Analyze(ctx, data, img.MimeType)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(diagnosis)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CompleteAnalysis(ctx, analysisID, string(raw), s.now()); err != nil {
		return nil, err
	}
	return diagnosis, nil
}

// refund возвращает кредит. Выполняется и при отменённом контексте запроса.
func (s *Service) refund(ctx context.Context, log *slog.Logger, userID, analysisID int64) {
	res, err := s.credits.Refund(context.WithoutCancel(ctx), userID, analysisID)
	switch {
	case errors.Is(err, credits.ErrAlreadyRefunded):
		log.Warn("credit already refunded")
	case err != nil:
		log.Error("failed to refund credit", sl.Err(err))
	default:
		log.Info("credit refunded", slog.String("refunded_to", string(res.RefundedTo)), slog.Int64("source_id", res.SourceID))
	}
}

func (s *Service) markFailed(ctx context.Context, log *slog.Logger, analysisID int64) {
	if err := s.repo.SetAnalysisStatus(context.WithoutCancel(ctx), analysisID, models.AnalysisFailed); err != nil {
		log.Error("failed to mark analysis as failed", sl.Err(err))
	}
}

// Get возвращает анализ пользователя.
func (s *Service) Get(ctx context.Context, userID, analysisID int64) (*models.Analysis, error) {
	return s.repo.GetAnalysis(ctx, userID, analysisID)
}

// History возвращает страницу анализов пользователя, новые первыми.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]*models.Analysis, error) {
	return s.repo.ListAnalyses(ctx, userID, limit, offset)
}
