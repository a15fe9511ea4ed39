package models

import "time"

// TransactionType тип изменения баланса в журнале.
type TransactionType string

const (
	TxAllocate TransactionType = "allocate"
	TxConsume  TransactionType = "consume"
	TxRefund   TransactionType = "refund"
	TxReset    TransactionType = "reset"
	TxExpire   TransactionType = "expire"
)

// SourceKind вид источника кредитов.
type SourceKind string

const (
	SourcePlan  SourceKind = "plan"
	SourceAddon SourceKind = "addon"
)

// Transaction неизменяемая запись журнала кредитов.
// Amount отрицателен для consume и expire, положителен для allocate и refund.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      int             `json:"amount"`
	SourceKind  *SourceKind     `json:"source_kind,omitempty"`
	SourceID    *int64          `json:"source_id,omitempty"`
	OperationID *int64          `json:"analysis_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasSource сообщает, заполнены ли сведения об источнике.
func (t *Transaction) HasSource() bool {
	return t.SourceKind != nil && t.SourceID != nil && *t.SourceID != 0
}
