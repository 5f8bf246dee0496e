package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

func TestToDomainError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation passes through", NewValidationError("title required", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"ticket not found", fmt.Errorf("load: %w", domain.ErrTicketNotFound), "NOT_FOUND", http.StatusNotFound},
		{"team not found", domain.ErrTeamNotFound, "NOT_FOUND", http.StatusNotFound},
		{"no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"anything else", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", NewValidationError("bad", nil))))
	assert.False(t, IsValidation(NewNotFound("ticket", nil)))
	assert.False(t, IsValidation(errors.New("plain")))
}
