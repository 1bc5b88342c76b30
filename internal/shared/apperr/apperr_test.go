package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NotFound("document %d not found", 42)
	assert.Equal(t, "document 42 not found", err.Error())

	wrapped := Storage("failed to save file", errors.New("disk full"))
	assert.Equal(t, "failed to save file: disk full", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Recoverable("ocr request failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindRecoverable, KindOf(Recoverable("transient", nil)))
	assert.Equal(t, KindFatal, KindOf(Fatal("terminal", nil)))

	// Kind survives wrapping
	wrapped := fmt.Errorf("analyze: %w", NotFound("document 1 not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	// Unclassified errors default to storage
	assert.Equal(t, KindStorage, KindOf(errors.New("plain error")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindStorage))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindFatal))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindRecoverable))
}
