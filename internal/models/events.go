package models

import "time"

// Ключи маршрутизации событий кредитного журнала.
const (
	EventConsumed  = "credit.consumed"
	EventRefunded  = "credit.refunded"
	EventAllocated = "credit.allocated"
	EventExpired   = "credit.expired"
)

// CreditEvent уведомление об изменении баланса, публикуемое после фиксации транзакции.
type CreditEvent struct {
	Type        TransactionType `json:"type"`
	UserID      int64           `json:"user_id"`
	Amount      int             `json:"amount"`
	SourceKind  SourceKind      `json:"source_kind"`
	SourceID    int64           `json:"source_id"`
	OperationID *int64          `json:"analysis_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// ExpiredSource источник кредитов, выведенный из оборота планировщиком.
type ExpiredSource struct {
	UserID     int64      `json:"user_id"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   int64      `json:"source_id"`
	Forfeited  int        `json:"forfeited"`
}
