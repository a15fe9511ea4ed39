package models

import "time"

// AnalysisStatus статус платного анализа изображения.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// Image загруженное пользователем изображение в объектном хранилище.
type Image struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ObjectKey string    `json:"object_key"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"uploaded_at"`
}

// Analysis запись об анализе. Её ID служит ссылкой операции в журнале кредитов.
type Analysis struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	ImageID     int64          `json:"image_id"`
	Status      AnalysisStatus `json:"status"`
	Diagnosis   *string        `json:"diagnosis,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	// Image заполняется только в истории анализов.
	Image *Image `json:"image,omitempty"`
}

// Diagnosis структурированный результат анализа витрины.
type Diagnosis struct {
	OverallAssessment    string   `json:"overallAssessment" validate:"required,max=500"`
	Strengths            []string `json:"strengths" validate:"max=3"`
	Issues               []string `json:"issues" validate:"max=4"`
	PriorityFixes        []string `json:"priorityFixes" validate:"max=3"`
	Recommendations      []string `json:"recommendations" validate:"max=6"`
	SuggestedSignageText string   `json:"suggestedSignageText" validate:"max=100"`
}

// DummyAnalysis тело запроса на запуск анализа.
type DummyAnalysis struct {
	ImageID int64 `json:"image_id" validate:"required,gt=0"`
}
