// Package analyzer вызывает модель анализа изображений витрины
// и возвращает проверенный структурированный диагноз.
package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator"
	openai "github.com/sashabaranov/go-openai"

	"github.com/magabrotheeeer/credit-ledger/internal/config"
	"github.com/magabrotheeeer/credit-ledger/internal/lib/sl"
	"github.com/magabrotheeeer/credit-ledger/internal/models"
)

// ErrInvalidResponse модель вернула ответ не в ожидаемом формате.
var ErrInvalidResponse = errors.New("invalid response format from analyzer")

// Analyzer клиент модели.
type Analyzer struct {
	client      *openai.Client
	model       string
	maxAttempts int
	baseDelay   time.Duration
	validate    *validator.Validate
	log         *slog.Logger
}

// New создает клиент модели по конфигу.
func New(cfg config.Analyzer, log *slog.Logger) *Analyzer {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	a := &Analyzer{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxAttempts: cfg.MaxRetries,
		baseDelay:   cfg.BaseDelay,
		validate:    validator.New(),
		log:         log,
	}
	if a.model == "" {
		a.model = openai.GPT4oMini
	}
	if a.maxAttempts <= 0 {
		a.maxAttempts = 3
	}
	if a.baseDelay <= 0 {
		a.baseDelay = time.Second
	}
	return a
}

// Analyze отправляет изображение модели. Сетевые сбои, 429 и 5xx повторяются
// с экспоненциальной задержкой baseDelay, 2*baseDelay, 4*baseDelay;
// ошибки авторизации и прочие 4xx возвращаются сразу.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*models.Diagnosis, error) {
	const op = "analyzer.Analyze"

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = a.baseDelay * 4
	b.MaxElapsedTime = 0

	attempt := 0
	var result *models.Diagnosis
	operation := func() error {
		attempt++
		d, err := a.analyzeOnce(ctx, image, mimeType)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		a.log.Warn("analyzer attempt failed, retrying",
			slog.Int("attempt", attempt), slog.Duration("wait", wait), sl.Err(err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("%s: attempt %d: %w", op, attempt, err)
	}
	return result, nil
}

func (a *Analyzer) analyzeOnce(ctx context.Context, image []byte, mimeType string) (*models.Diagnosis, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		MaxTokens:   2048,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}
	return a.parse(resp.Choices[0].Message.Content)
}

// parse вырезает JSON-объект из текста ответа и проверяет ограничения полей.
func (a *Analyzer) parse(content string) (*models.Diagnosis, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no json object", ErrInvalidResponse)
	}

	var d models.Diagnosis
	if err := json.Unmarshal([]byte(content[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := a.validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &d, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return true
	}
	return code < http.StatusBadRequest
}
