package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/leaseq/pkg/logger"
	"github.com/dmitrymomot/leaseq/pkg/worker"
)

func TestValidNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"+15550100123", true},
		{"+4915112345678", true},
		{"15550100123", false},
		{"+1555", false},
		{"+1555-010-0123", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validNumber(tt.in), tt.in)
	}
}

func TestSendSMS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	task := &sendSMS{gateway: newRateLimitedGateway(1, time.Hour), log: logger.NewNope()}

	require.NoError(t, task.Handle(ctx, sendSMSPayload{To: "+15550100123", Body: "Your order shipped"}))

	err := task.Handle(ctx, sendSMSPayload{To: "+15550100123", Body: "Second message"})
	require.Error(t, err)
	assert.False(t, worker.IsPermanent(err))
	assert.Contains(t, err.Error(), "snoozed")

	err = task.Handle(ctx, sendSMSPayload{To: "not-a-number", Body: "hi"})
	assert.True(t, worker.IsPermanent(err))
	assert.True(t, errors.Is(err, errInvalidNumber))
}

func TestSummarizeNote(t *testing.T) {
	t.Parallel()

	task := &summarizeNote{ai: stubSummarizer{}, log: logger.NewNope()}
	assert.NoError(t, task.Handle(context.Background(), summarizePayload{NoteID: 7}))
	assert.True(t, worker.IsPermanent(task.Handle(context.Background(), summarizePayload{})))
}
