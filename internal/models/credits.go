package models

// AvailableCredits разбивка доступных пользователю кредитов.
type AvailableCredits struct {
	PlanCredits  int `json:"plan_credits"`
	AddonCredits int `json:"addon_credits"`
	Total        int `json:"total"`
}

// ConsumeResult результат успешного списания одного кредита.
type ConsumeResult struct {
	RemainingCredits int        `json:"remaining_credits"`
	SourceKind       SourceKind `json:"source_type"`
	SourceID         int64      `json:"source_id"`
	IsFreeTier       bool       `json:"is_free_tier"`
}

// RefundResult результат успешного возврата кредита в исходный источник.
type RefundResult struct {
	RefundedTo SourceKind `json:"refunded_to"`
	SourceID   int64      `json:"source_id"`
}

// DummyConsume тело запроса на списание кредита.
type DummyConsume struct {
	AnalysisID *int64 `json:"analysis_id,omitempty" validate:"omitempty,gt=0"`
}

// DummyRefund тело запроса на возврат кредита.
type DummyRefund struct {
	AnalysisID int64 `json:"analysis_id" validate:"required,gt=0"`
}
