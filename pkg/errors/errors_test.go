package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Message(t *testing.T) {
	err := NewNotFoundError("session")
	assert.Equal(t, "NOT_FOUND: session not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)

	cause := errors.New("media source returned 503")
	wrapped := WrapError(cause, ErrCodeBadGateway, "video probe failed", http.StatusBadGateway)
	assert.Contains(t, wrapped.Error(), "BAD_GATEWAY: video probe failed")
	assert.Contains(t, wrapped.Error(), "media source returned 503")
	assert.ErrorIs(t, wrapped, cause)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewInvalidInputError("action timestamps must not decrease").
		WithContext("session_id", "sess-1").
		WithContext("index", 3)

	assert.Equal(t, "sess-1", err.Context["session_id"])
	assert.Equal(t, 3, err.Context["index"])
}

func TestGetAppError_FindsErrorInChain(t *testing.T) {
	appErr := NewConflictError("replay already running")

	assert.Same(t, appErr, GetAppError(appErr))
	assert.Same(t, appErr, GetAppError(fmt.Errorf("start replay: %w", appErr)))
	assert.Nil(t, GetAppError(errors.New("plain error")))
	assert.Nil(t, GetAppError(nil))
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NewRateLimitError()))
	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", NewInternalError("boom"))))
	assert.False(t, IsAppError(errors.New("plain error")))
}

func TestConstructors_StatusCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		code ErrorCode
		http int
	}{
		{NewInvalidInputError("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{NewNotFoundError("session"), ErrCodeNotFound, http.StatusNotFound},
		{NewConflictError("busy"), ErrCodeConflict, http.StatusConflict},
		{NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{NewInternalError("boom"), ErrCodeInternal, http.StatusInternalServerError},
		{NewBadGatewayError("host down"), ErrCodeBadGateway, http.StatusBadGateway},
	}

	for _, tc := range cases {
		require.NotNil(t, tc.err)
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.http, tc.err.HTTPStatus)
	}
}
