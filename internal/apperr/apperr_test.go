package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"enginefleet/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	base := apperr.NotFound("instance.get", errors.New("no such instance"))
	wrapped := fmt.Errorf("handling request: %w", base)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(wrapped))
	assert.True(t, apperr.Is(wrapped, apperr.KindNotFound))
	assert.False(t, apperr.Is(wrapped, apperr.KindCapacity))
}

func TestKindOfUnknownForPlainError(t *testing.T) {
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(errors.New("plain")))
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := apperr.Validation("instance.create", errors.New("bad name"))
	assert.Contains(t, err.Error(), "instance.create")
	assert.Contains(t, err.Error(), "bad name")
}
