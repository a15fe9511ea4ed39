package models

import "time"

// Addon разовое пополнение кредитов со своим сроком действия.
// Истёкший add-on просто исключается из выборки, фоновая очистка не обязательна.
type Addon struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Credits          int       `json:"credits"`
	CreditsRemaining int       `json:"credits_remaining"`
	Status           Status    `json:"status"`
	PurchaseDate     time.Time `json:"purchase_date"`
	ExpirationDate   time.Time `json:"expiration_date"`
}

// Spendable сообщает, можно ли списать кредит с add-on в момент now.
func (a *Addon) Spendable(now time.Time) bool {
	return a.Status == StatusActive && a.CreditsRemaining > 0 && !a.ExpirationDate.Before(now)
}
