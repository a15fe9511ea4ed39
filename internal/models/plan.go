// Package models содержит доменные структуры кредитного учёта: планы,
// add-on пакеты, записи журнала транзакций, платежи и анализы,
// а также типы результатов операций над балансом.
package models

import "time"

// PlanKind тип плана подписки.
type PlanKind string

const (
	// PlanFreeTier бесплатный план, выдаётся один раз и не истекает.
	PlanFreeTier PlanKind = "freetier"
	// PlanSingle разовый план на один анализ.
	PlanSingle PlanKind = "single"
	// PlanMonthly3 ежемесячный план на 3 кредита.
	PlanMonthly3 PlanKind = "monthly_3"
	// PlanMonthly10 ежемесячный план на 10 кредитов.
	PlanMonthly10 PlanKind = "monthly_10"
)

// RecurringPlanKinds виды планов, которые считаются подпиской.
// У пользователя может быть не более одной активной подписки.
var RecurringPlanKinds = []PlanKind{PlanMonthly3, PlanMonthly10}

// IsRecurring сообщает, является ли план ежемесячной подпиской.
func (k PlanKind) IsRecurring() bool {
	for _, r := range RecurringPlanKinds {
		if k == r {
			return true
		}
	}
	return false
}

// Valid проверяет, что тип плана входит в закрытый набор.
func (k PlanKind) Valid() bool {
	switch k {
	case PlanFreeTier, PlanSingle, PlanMonthly3, PlanMonthly10:
		return true
	}
	return false
}

// Status статус активности плана или add-on пакета.
type Status string

const (
	// StatusActive источник участвует в подсчёте и списании.
	StatusActive Status = "active"
	// StatusExpired источник выведен из оборота планировщиком.
	StatusExpired Status = "expired"
)

// Plan представляет ограниченный по времени грант кредитов по подписке.
// EndDate равен nil только у бесплатного плана.
type Plan struct {
	ID               int64      `json:"id"`
	UserID           int64      `json:"user_id"`
	Kind             PlanKind   `json:"type"`
	Credits          int        `json:"credits"`
	CreditsRemaining int        `json:"credits_remaining"`
	Status           Status     `json:"status"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	ResetDate        *time.Time `json:"reset_date"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Spendable сообщает, можно ли списать кредит с плана в момент now.
func (p *Plan) Spendable(now time.Time) bool {
	if p.Status != StatusActive || p.CreditsRemaining <= 0 {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(now)
}
