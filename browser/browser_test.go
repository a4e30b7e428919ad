package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"

	"github.com/garyohosu/translate-nudge/models"
	"github.com/garyohosu/translate-nudge/source"
	"github.com/garyohosu/translate-nudge/trigger"
)

func TestDecodeSignals(t *testing.T) {
	raw := gson.NewFrom(`[
		{"k": "scroll", "y": 320.5},
		{"k": "mutation", "n": 3, "e": 2},
		{"k": "scroll"},
		{"k": "resize"},
		"garbage"
	]`)

	events, bad := decodeSignals(raw)
	assert.Equal(t, 3, bad)
	require.Len(t, events, 2)
	assert.Equal(t, source.Event{Kind: trigger.KindScroll, Position: 320.5}, events[0])
	assert.Equal(t, source.Event{Kind: trigger.KindMutation, Batch: trigger.MutationBatch{AddedNodes: 3, AddedElements: 2}}, events[1])
}

func TestDecodeSignals_Empty(t *testing.T) {
	events, bad := decodeSignals(gson.NewFrom(`[]`))
	assert.Empty(t, events)
	assert.Zero(t, bad)
}

func TestDecodeElements(t *testing.T) {
	raw := gson.NewFrom(`[
		{"id": "n1", "text": "Just shipped", "html": "<p>Just shipped</p>"},
		{"text": "no identity"}
	]`)

	els := decodeElements(raw)
	require.Len(t, els, 1)
	assert.Equal(t, "n1", els[0].ID)
	assert.Equal(t, "Just shipped", els[0].Text)
	assert.Equal(t, "<p>Just shipped</p>", els[0].HTML)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{context.DeadlineExceeded, models.ErrCodeTimeout},
		{context.Canceled, models.ErrCodeTimeout},
		{errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ne := categorizeError(models.OpOpen, tt.err, "navigation failed")
			assert.Equal(t, tt.code, ne.Code)
			assert.Equal(t, models.OpOpen, ne.Op)
			assert.Equal(t, tt.code == models.ErrCodeTimeout, ne.Retryable())
			assert.ErrorIs(t, ne, tt.err)
		})
	}
}
