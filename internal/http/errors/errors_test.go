package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorAppError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrForbidden.WithDetail("Not allowed to redirect to https://evil.com"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.Equal(t, "Not allowed to redirect to https://evil.com", body.Detail)
}

func TestWriteErrorGenericHidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, stderrors.New("db password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestFromErrorUnwrapsChain(t *testing.T) {
	cause := stderrors.New("boom")
	wrapped := fmt.Errorf("controller: %w", ErrNotFound.WithCause(cause))

	appErr := FromError(wrapped)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.ErrorIs(t, appErr, cause)
}

func TestWithDetailDoesNotMutateBase(t *testing.T) {
	_ = ErrNotFound.WithDetail("x")
	assert.Empty(t, ErrNotFound.Detail)
}
