package credits

import "errors"

// Ожидаемые бизнес-исходы и ошибки целостности данных.
// Они возвращаются без обёртки и проверяются через errors.Is.
var (
	// ErrInsufficientCredits у пользователя нет ни одного источника для списания.
	// Это нормальный исход, состояние не изменяется.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrConsumptionNotFound для операции нет исходного списания.
	ErrConsumptionNotFound = errors.New("no original consumption found")
	// ErrConsumptionMalformed запись списания не содержит источника.
	ErrConsumptionMalformed = errors.New("consumption record malformed")
	// ErrSourceNotFound план или add-on, с которого списывали, больше не существует.
	ErrSourceNotFound = errors.New("original source not found")
	// ErrAlreadyRefunded по операции уже был возврат.
	ErrAlreadyRefunded = errors.New("consumption already refunded")

	// ErrContention источники многократно опустошались конкурентными списаниями,
	// попытки выбора исчерпаны. Повтор запроса допустим.
	ErrContention = errors.New("credit source contention, retry later")

	errNoSource = errors.New("no spendable source")
)

// IsBusinessOutcome сообщает, является ли ошибка типизированным отказом движка,
// а не сбоем хранилища.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrConsumptionNotFound) ||
		errors.Is(err, ErrConsumptionMalformed) ||
		errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrAlreadyRefunded)
}
