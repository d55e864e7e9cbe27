package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithSource("tavily")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[UPSTREAM_ERROR] upstream failed: root", err.Error())
	assert.Equal(t, "tavily", err.Source)
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrUnsafeQuery, "statement rejected")
	wrapped := fmt.Errorf("structured provider: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, IsErrorCode(wrapped, ErrUnsafeQuery))
	assert.False(t, IsRetryable(wrapped))
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.False(t, IsRetryable(plain))
	_, ok := AsError(plain)
	assert.False(t, ok)
}

func TestError_Constructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, NewInvalidRequestError("empty").HTTPStatus)

	unavailable := NewServiceUnavailableError("orchestrator not ready")
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.HTTPStatus)
	assert.True(t, unavailable.Retryable)

	cause := errors.New("panic")
	internal := NewInternalError("ask failed", cause)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.ErrorIs(t, internal, cause)
}
