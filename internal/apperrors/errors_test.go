package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"expertcheck/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load: %w", apperrors.NotFound("content", "abc"))

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, apperrors.CodeUnknown, apperrors.GetCode(errors.New("plain")))
	assert.False(t, apperrors.IsCode(nil, apperrors.CodeNotFound))
}

func TestCommitFailedReconciliationFlag(t *testing.T) {
	cause := errors.New("boom")

	compensated := apperrors.CommitFailed("content", true, cause)
	assert.False(t, apperrors.NeedsReconciliation(compensated))
	assert.Equal(t, "content", apperrors.Stage(compensated))
	assert.ErrorIs(t, compensated, cause)

	partial := apperrors.CommitFailed("library", false, cause)
	assert.True(t, apperrors.NeedsReconciliation(fmt.Errorf("wrapped: %w", partial)))
	assert.Contains(t, partial.Error(), "reconciliation required")

	assert.False(t, apperrors.NeedsReconciliation(apperrors.Validation("x")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code apperrors.Code
		want int
	}{
		{apperrors.CodeValidation, http.StatusBadRequest},
		{apperrors.CodeNotFound, http.StatusNotFound},
		{apperrors.CodeInvalidTransition, http.StatusConflict},
		{apperrors.CodeAlreadyFinalized, http.StatusConflict},
		{apperrors.CodeStoreUnavailable, http.StatusServiceUnavailable},
		{apperrors.CodeCommitFailed, http.StatusInternalServerError},
		{apperrors.CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
