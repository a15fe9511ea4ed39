package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOKWithData(t *testing.T) {
	data := map[string]int{"total": 3}
	resp := StatusOKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something went wrong", resp.Error)
}

func TestValidationError(t *testing.T) {
	type request struct {
		AnalysisID int64  `validate:"required,gt=0"`
		PlanType   string `validate:"required,oneof=single addon"`
		Limit      int    `validate:"gt=0"`
	}

	err := validator.New().Struct(request{PlanType: "yearly", Limit: -1})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field AnalysisID is a required field")
	assert.Contains(t, resp.Error, "field PlanType must be one of [single addon]")
	assert.Contains(t, resp.Error, "field Limit must be greater than 0")
}

func TestValidationError_UnknownTag(t *testing.T) {
	type request struct {
		Email string `validate:"email"`
	}

	err := validator.New().Struct(request{Email: "not-an-email"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, "field Email is not valid", resp.Error)
}
