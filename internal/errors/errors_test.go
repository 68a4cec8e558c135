package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError},
		{ErrCodeIndexCorrupt, CategoryStorage, SeverityFatal},
		{ErrCodeAPIRateLimited, CategoryAPI, SeverityWarning},
		{ErrCodeInvalidSlug, CategoryValidation, SeverityError},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.severity, e.Severity)
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	e := Wrap(ErrCodeAPIRequest, cause)

	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), ErrCodeAPIRequest)

	wrapped := fmt.Errorf("fetch workspace: %w", e)
	var target *Error
	require.True(t, stderrors.As(wrapped, &target))
	assert.Equal(t, ErrCodeAPIRequest, target.Code)
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(ErrCodeIndexOpen, "cannot open", nil)
	b := New(ErrCodeIndexOpen, "different message", nil)
	c := New(ErrCodeIndexCorrupt, "corrupt", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI(t *testing.T) {
	e := New(ErrCodeNoWorkspace, "no workspace configured", nil).
		WithSuggestion("run `notora config add` first")

	out := FormatForCLI(e)
	assert.Contains(t, out, "Error: no workspace configured")
	assert.Contains(t, out, "notora config add")
	assert.Contains(t, out, ErrCodeNoWorkspace)

	plain := FormatForCLI(fmt.Errorf("plain failure"))
	assert.Equal(t, "Error: plain failure", plain)
}

func TestLogAttrs(t *testing.T) {
	e := New(ErrCodeAPIRequest, "search failed", nil).WithDetail("status", "500")

	attrs := LogAttrs(e)
	assert.Equal(t, ErrCodeAPIRequest, attrs["code"])
	assert.Equal(t, "API", attrs["category"])
	assert.Equal(t, "500", attrs["status"])
}
