package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := ConnectionError("redis unreachable", nil)
	assert.Equal(t, "connection: redis unreachable", err.Error())

	cause := errors.New("dial tcp: connection refused")
	wrapped := ConnectionError("redis unreachable", cause)
	assert.Contains(t, wrapped.Error(), "dial tcp")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := InternalError("wrapper", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsType(t *testing.T) {
	err := RateLimitError("client ip:10.0.0.1")

	assert.True(t, IsType(err, ErrTypeRateLimit))
	assert.False(t, IsType(err, ErrTypeConnection))
	assert.False(t, IsType(errors.New("plain"), ErrTypeRateLimit))
	assert.Equal(t, ErrTypeRateLimit, GetType(err))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	err := ConfigError("bad limit").WithContext("raw", "10/fortnight")

	assert.Equal(t, "10/fortnight", err.Context["raw"])
	assert.Contains(t, err.Error(), "raw=10/fortnight")
}
