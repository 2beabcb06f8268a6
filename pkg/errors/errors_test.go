package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrNotFound, "student not found")
	wrapped := fmt.Errorf("load: %w", typed)

	got := FromError(wrapped)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student not found", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	assert.True(t, errors.Is(Clone(ErrCacheMiss, "miss for key"), ErrCacheMiss))
	assert.True(t, errors.Is(Upstream(errors.New("dial"), "preview api down"), ErrUpstreamUnavailable))
	assert.False(t, errors.Is(Validation(nil, "bad"), ErrNotFound))
}
