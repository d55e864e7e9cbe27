package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/cricketflow/llm"
	"github.com/BaSui01/cricketflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	provider, model, status string
	tokens                  int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) RecordLLMRequest(provider, model, status string, _ time.Duration, tokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{provider, model, status, tokens})
}

func fastConfig() llm.ResilientConfig {
	return llm.ResilientConfig{
		Timeout:        time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestResilientProvider_RetriesRetryableErrors(t *testing.T) {
	retryable := &llm.Error{Code: llm.ErrRateLimited, Message: "slow down", Retryable: true}
	mock := mocks.NewMockProvider().On(
		func(*llm.ChatRequest) bool { return true },
		mocks.Reply{Err: retryable},
		mocks.Reply{Content: "ok"},
	)
	rec := &fakeRecorder{}

	rp := llm.NewResilientProvider(mock, fastConfig(), rec, nil)
	text, err := llm.CompleteText(context.Background(), rp, &llm.ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, mock.CallCount())

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "error", rec.calls[0].status)
	assert.Equal(t, "success", rec.calls[1].status)
	assert.Equal(t, 15, rec.calls[1].tokens)
}

func TestResilientProvider_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := &llm.Error{Code: llm.ErrUnauthorized, Message: "bad key"}
	mock := mocks.NewMockProvider().WithError(permanent)

	rp := llm.NewResilientProvider(mock, fastConfig(), nil, nil)
	_, err := rp.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, permanent))
	assert.Equal(t, 1, mock.CallCount())
}

func TestResilientProvider_GivesUpAfterMaxRetries(t *testing.T) {
	mock := mocks.NewMockProvider().WithError(&llm.Error{Code: llm.ErrUpstreamError, Retryable: true})

	rp := llm.NewResilientProvider(mock, fastConfig(), nil, nil)
	_, err := rp.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	// 首次 + 2 次重试
	assert.Equal(t, 3, mock.CallCount())
}

func TestResilientProvider_PerAttemptTimeout(t *testing.T) {
	mock := mocks.NewMockProvider().WithDelay(time.Second)

	cfg := fastConfig()
	cfg.MaxRetries = 0
	rp := llm.NewResilientProvider(mock, cfg, nil, nil)

	start := time.Now()
	_, err := rp.Completion(context.Background(), &llm.ChatRequest{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCompleteText_EmptyChoices(t *testing.T) {
	mock := mocks.NewMockProvider().WithCompletionFunc(func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Provider: "mock"}, nil
	})

	_, err := llm.CompleteText(context.Background(), mock, &llm.ChatRequest{})
	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llm.ErrEmptyResponse, llmErr.Code)
}

func TestResilientProvider_Name(t *testing.T) {
	rp := llm.NewResilientProvider(mocks.NewMockProvider(), llm.DefaultResilientConfig(), nil, nil)
	assert.Equal(t, "mock", rp.Name())

	status, err := rp.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}
