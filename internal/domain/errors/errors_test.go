package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantPermanent bool
	}{
		{"transient", NewTransientError("rate limited", cause), true, false},
		{"permanent", NewPermanentError("invalid_auth", cause), false, true},
		{"wrapped transient", fmt.Errorf("connecting: %w", NewTransientError("timeout", cause)), true, false},
		{"plain", cause, false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTransient, IsTransientError(tt.err))
			assert.Equal(t, tt.wantPermanent, IsPermanentError(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NewPermanentError("opening dm: cannot_dm_bot", fmt.Errorf("wrap: %w", ErrCannotDM))

	assert.ErrorIs(t, err, ErrCannotDM)
	assert.Equal(t, "opening dm: cannot_dm_bot", err.Error())
}
