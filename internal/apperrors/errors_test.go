package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormErrorUnwrapsToKind(t *testing.T) {
	tests := []struct {
		name string
		err  *FormError
		kind error
	}{
		{"validation", Validation("Username is required."), ErrValidation},
		{"duplicate", DuplicateUser("User ada is already registered."), ErrDuplicateUser},
		{"authentication", Authentication("Incorrect password."), ErrAuthentication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("register: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.Equal(t, tt.err.Message, tt.err.Error())

			fe, ok := AsForm(wrapped)
			require.True(t, ok)
			assert.Same(t, tt.err, fe)
		})
	}
}

func TestAsFormRejectsPlainErrors(t *testing.T) {
	_, ok := AsForm(fmt.Errorf("list movies: %w", ErrQuery))
	assert.False(t, ok)
	_, ok = AsForm(errors.New("boom"))
	assert.False(t, ok)
}
