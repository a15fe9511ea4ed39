// Package response задаёт JSON-конверт ответов API.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response конверт ответа: Data при успехе, Error при отказе.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse конверт отказа, отдельный тип нужен для swagger.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"insufficient credits"`
}

// StatusOKWithData оборачивает данные успешного ответа.
func StatusOKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error оборачивает сообщение об ошибке.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg}
}

// форматы сообщений по тегам валидатора; %[1]s поле, %[2]s параметр тега
var tagMessages = map[string]string{
	"required": "field %[1]s is a required field",
	"gt":       "field %[1]s must be greater than %[2]s",
	"oneof":    "field %[1]s must be one of [%[2]s]",
}

// ValidationError собирает ошибки валидации тела запроса в одно сообщение.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		format, ok := tagMessages[fe.ActualTag()]
		if !ok {
			format = "field %[1]s is not valid"
		}
		msgs = append(msgs, fmt.Sprintf(format, fe.Field(), fe.Param()))
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}
