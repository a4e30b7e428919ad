package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNudgeError(t *testing.T) {
	ne := NewNudgeError(OpPending, ErrCodeDocument, "reading the page failed", context.DeadlineExceeded)

	assert.Equal(t, "pending DOCUMENT_UNAVAILABLE: reading the page failed: context deadline exceeded", ne.Error())
	assert.True(t, errors.Is(ne, context.DeadlineExceeded))
	assert.True(t, ne.Retryable())

	d := ne.Detail()
	assert.Equal(t, &ErrorDetail{Code: ErrCodeDocument, Op: OpPending, Message: "reading the page failed", Retryable: true}, d)

	back := FromDetail(d)
	assert.Equal(t, OpPending, back.Op)
	assert.Nil(t, back.Err)
	assert.Equal(t, "pending DOCUMENT_UNAVAILABLE: reading the page failed", back.Error())
}

func TestNudgeError_Retryable(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeRateLimited, true},
		{ErrCodeDocument, true},
		{ErrCodeInvalidInput, false},
		{ErrCodeUnauthorized, false},
		{ErrCodeBrowserCrash, false},
		{ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, NewNudgeError("", tt.code, "x", nil).Retryable())
		})
	}

	assert.Equal(t, "INTERNAL_ERROR: boom", NewNudgeError("", ErrCodeInternal, "boom", nil).Error())
}
