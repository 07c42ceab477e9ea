package validator_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blackfile/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all pass", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("name", "x"),
			validator.MaxNum("size", 10, 100),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.Required("name", "  "),
			validator.ValidEmail("email", "nope"),
			validator.MinNum("size", 0, 1),
		)
		require.Error(t, err)

		verrs := validator.ExtractValidationErrors(err)
		require.Len(t, verrs, 3)
		assert.Equal(t, []string{"name", "email", "size"}, verrs.Fields())
		assert.True(t, verrs.Has("email"))
		assert.Equal(t, []string{"must be at least 1"}, verrs.Get("size"))
		assert.Equal(t, "validation failed: name: field is required; email: must be a valid email address; size: must be at least 1", err.Error())
	})

	t.Run("wrapped errors are detected", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("issue: %w", validator.Apply(validator.Required("file", "")))
		assert.True(t, validator.IsValidationError(err))
		assert.False(t, validator.IsValidationError(errors.New("other")))
		assert.Nil(t, validator.ExtractValidationErrors(nil))
	})
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"a@example.com", "first.last+tag@sub.example.org"}
	invalid := []string{"", "   ", "plain", "a@localhost", "a@.com", "a@example.", "a@exa..mple.com", "Bob <bob@example.com>", "@example.com"}

	for _, v := range valid {
		assert.NoError(t, validator.Apply(validator.ValidEmail("email", v)), v)
	}
	for _, v := range invalid {
		assert.Error(t, validator.Apply(validator.ValidEmail("email", v)), v)
	}
}

func TestInList(t *testing.T) {
	t.Parallel()

	allowed := []time.Duration{5 * time.Minute, 10 * time.Minute, time.Hour}
	assert.NoError(t, validator.Apply(validator.InList("ttl", 10*time.Minute, allowed)))

	err := validator.Apply(validator.InList("ttl", 7*time.Minute, allowed))
	require.Error(t, err)
	assert.Equal(t, []string{"must be one of: [5m0s 10m0s 1h0m0s]"}, validator.ExtractValidationErrors(err).Get("ttl"))
}

func TestMaxLen(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.Apply(validator.MaxLen("name", "abc", 3)))
	assert.Error(t, validator.Apply(validator.MaxLen("name", "abcd", 3)))
}
