package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BaSui01/cricketflow/api"
	"github.com/BaSui01/cricketflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Common 函数测试
// =============================================================================

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"version": "v1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    *types.Error
		status int
	}{
		{types.NewInvalidRequestError("question must not be empty"), http.StatusBadRequest},
		{types.NewError(types.ErrRateLimited, "too many requests"), http.StatusTooManyRequests},
		{types.NewServiceUnavailableError("agent is not initialized"), http.StatusServiceUnavailable},
		{types.NewError(types.ErrInternalError, "panic"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err, zap.NewNop())

			assert.Equal(t, tt.status, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.err.Code), resp.Error.Code)
			assert.Equal(t, tt.err.Message, resp.Error.Message)
		})
	}
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrUnsafeQuery, http.StatusBadRequest},
		{types.ErrUnauthorized, http.StatusUnauthorized},
		{types.ErrNoLiveData, http.StatusNotFound},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{types.ErrUpstreamError, http.StatusBadGateway},
		{types.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapErrorCodeToHTTPStatus(tt.code), tt.code)
	}
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"question":"Who won match 1?"}`},
		{name: "empty", body: "", wantErr: "request body is empty"},
		{name: "malformed", body: `{"question":}`, wantErr: "invalid JSON body"},
		{name: "unknown field", body: `{"question":"q","match":1}`, wantErr: "invalid JSON body"},
		{name: "too large", body: `{"question":"` + strings.Repeat("x", 2<<20) + `"}`, wantErr: "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			var body io.Reader = strings.NewReader(tt.body)
			if tt.body == "" {
				body = http.NoBody
			}
			r := httptest.NewRequest(http.MethodPost, "/ask", body)

			var req api.AskRequest
			err := DecodeJSONBody(w, r, &req, zap.NewNop())
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Who won match 1?", req.Question)
				return
			}
			assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=UTF-8", true},
		{"application/json;  charset=utf-8", true},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/ask", nil)
		r.Header.Set("Content-Type", tt.contentType)
		assert.Equal(t, tt.want, ValidateContentType(w, r, zap.NewNop()), tt.contentType)
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)
	assert.Equal(t, http.StatusOK, rw.StatusCode)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusBadRequest)
	assert.Equal(t, http.StatusCreated, rw.StatusCode)

	n, err := rw.Write([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), rw.BytesWritten)
	assert.Same(t, w, rw.Unwrap())

	// ResponseRecorder 不支持 Hijack，错误应原样透出
	_, _, err = rw.Hijack()
	assert.True(t, errors.Is(err, http.ErrNotSupported))
}
