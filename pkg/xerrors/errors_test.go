package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeEncode, "bad value")
	assert.Equal(t, "encode: bad value", err.Error())

	wrapped := Wrap(fmt.Errorf("boom"), ErrorTypeIO, "write failed")
	assert.Equal(t, "io: write failed: boom", wrapped.Error())
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(cause, ErrorTypeConnection, "connect failed")
	assert.ErrorIs(t, err, cause)

	outer := Wrap(err, ErrorTypeQuery, "query failed")
	assert.ErrorIs(t, outer, cause)

	var inner *Error
	require.True(t, errors.As(outer, &inner))
	assert.Equal(t, ErrorTypeQuery, inner.Type)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrorTypeIO, "ignored %d", 1))
}

func TestIsType(t *testing.T) {
	err := Newf(ErrorTypeCapacity, "value too wide: %d bytes", 42)
	assert.True(t, IsType(err, ErrorTypeCapacity))
	assert.False(t, IsType(err, ErrorTypeIO))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeCapacity))

	// Wrapping in a plain error keeps the type discoverable.
	assert.True(t, IsType(fmt.Errorf("outer: %w", err), ErrorTypeCapacity))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeEncode, "bad decimal").
		WithDetail("column", "amount").
		WithDetail("row", 17)
	assert.Equal(t, "amount", err.Details["column"])
	assert.Equal(t, 17, err.Details["row"])
}

func TestStackCaptured(t *testing.T) {
	err := New(ErrorTypeConfig, "bad config")
	assert.NotEmpty(t, err.Stack)
}
