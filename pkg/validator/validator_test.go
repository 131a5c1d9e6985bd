package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Category string `validate:"required,category"`
	Note     string `validate:"max=5"`
}

func TestValidateCategory(t *testing.T) {
	for _, c := range []string{"plastic", "paper", "metal", "glass", "electronics", "organic", "other"} {
		assert.NoError(t, Validate(context.Background(), sample{Category: c}), c)
	}

	err := Validate(context.Background(), sample{Category: "cardboard"})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "Category", fieldErr.Field)
	assert.Equal(t, "category", fieldErr.Rule)
}

func TestValidateRequired(t *testing.T) {
	err := Validate(context.Background(), sample{})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "required", fieldErr.Rule)
}

func TestValidateMaxLen(t *testing.T) {
	err := Validate(context.Background(), sample{Category: "paper", Note: "this note is too long"})
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "Note", fieldErr.Field)
	assert.Equal(t, "max", fieldErr.Rule)
}
