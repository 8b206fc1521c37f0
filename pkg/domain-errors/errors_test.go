package derrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "insert event")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "insert event")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "noop"))
}

func TestHasCode(t *testing.T) {
	inner := New(CodeValidation, "bad identifying value")
	outer := Wrap(inner, CodeInternal, "resolve failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeValidation), "codes deeper in the chain are visible")
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestHasCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("store: %w", New(CodeSchemaNotFound, "no schema for type trackpage"))
	assert.True(t, HasCode(err, CodeSchemaNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "x")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
