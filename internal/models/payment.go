package models

import "time"

// Product товар каталога: тип плана или add-on.
type Product string

// ProductAddon идентификатор add-on пакета в каталоге.
const ProductAddon Product = "addon"

// Price цена и объём кредитов позиции каталога. Price в целых единицах валюты.
type Price struct {
	Price   int64
	Credits int
	Title   string
}

// Currency валюта всех позиций каталога.
const Currency = "ARS"

// Pricing каталог продаваемых позиций.
var Pricing = map[Product]Price{
	Product(PlanSingle):    {Price: 6000, Credits: 1, Title: "Análisis único"},
	Product(PlanMonthly3):  {Price: 9000, Credits: 3, Title: "Plan Mensual 3 Créditos"},
	Product(PlanMonthly10): {Price: 15000, Credits: 10, Title: "Plan Mensual 10 Créditos"},
	ProductAddon:           {Price: 3000, Credits: 1, Title: "Crédito adicional"},
}

// FreeTierCredits объём кредитов бесплатного плана.
const FreeTierCredits = 1

// IsAddon сообщает, является ли позиция add-on пакетом.
func (p Product) IsAddon() bool {
	return p == ProductAddon
}

// PlanKind возвращает тип плана для позиции каталога.
func (p Product) PlanKind() PlanKind {
	return PlanKind(p)
}

// Payment подтверждённый платёж провайдера. ProviderPaymentID уникален,
// по нему обеспечивается однократное начисление кредитов.
type Payment struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	Product           Product   `json:"plan_type"`
	Metadata          string    `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Allocation результат начисления кредитов по платежу.
// Duplicate равен true, если платёж уже был обработан ранее.
type Allocation struct {
	PaymentID  int64      `json:"payment_id"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   int64      `json:"source_id"`
	Credits    int        `json:"credits"`
	Duplicate  bool       `json:"duplicate"`
}

// DummyCheckout тело запроса на создание платёжной preference.
type DummyCheckout struct {
	PlanType string `json:"plan_type" validate:"required,oneof=single monthly_3 monthly_10 addon"`
}
