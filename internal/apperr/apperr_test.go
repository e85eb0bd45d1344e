package apperr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreledger/wallet-ledger/internal/apperr"
)

func TestConstructorsMapToStableCodesAndStatuses(t *testing.T) {
	cases := []struct {
		name     string
		err      *apperr.Error
		code     string
		status   int
	}{
		{"validation", apperr.Validation("bad amount", nil), "VALIDATION_ERROR", http.StatusUnprocessableEntity},
		{"not found", apperr.NotFound("wallet"), "NOT_FOUND", http.StatusNotFound},
		{"conflict", apperr.Conflict("asset mismatch"), "CONFLICT", http.StatusConflict},
		{"insufficient funds", apperr.InsufficientFunds("10", "20"), "INSUFFICIENT_FUNDS", http.StatusUnprocessableEntity},
		{"rate limited", apperr.RateLimited(), "RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests},
		{"constraint violation", apperr.ConstraintViolation("balance check failed"), "CONSTRAINT_VIOLATION", http.StatusUnprocessableEntity},
		{"internal", apperr.Internal(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code())
			assert.Equal(t, tc.status, tc.err.Status())
		})
	}
}

func TestInsufficientFundsCarriesAvailableAndRequired(t *testing.T) {
	err := apperr.InsufficientFunds("600.000000", "9999.000000")
	details, ok := err.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "600.000000", details["available"])
	assert.Equal(t, "9999.000000", details["required"])
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsHelper(t *testing.T) {
	err := apperr.NotFound("transaction")
	ae, ok := apperr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)

	_, ok = apperr.As(errors.New("plain"))
	assert.False(t, ok)
}
