package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		UserID   int64  `json:"user_id" validate:"required,gt=0"`
		Password string `json:"password,omitempty" validate:"required,min=8"`
		Internal string `json:"-" validate:"-"`
	}

	err := ValidateStruct(&payload{})
	require.Error(t, err)

	ve, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, ve, 2)
	require.Equal(t, "user_id", ve[0].Field)
	require.Equal(t, "required", ve[0].Tag)
	require.Equal(t, "password", ve[1].Field)

	require.NoError(t, ValidateStruct(&payload{UserID: 1, Password: "long-enough"}))
}

func TestValidationErrorsString(t *testing.T) {
	ve := ValidationErrors{
		{Field: "password", Tag: "min", Param: "8"},
		{Field: "user_id", Tag: "required"},
	}
	require.Equal(t, "password failed on min=8; user_id failed on required", ve.Error())
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}
