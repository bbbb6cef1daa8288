package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = New(http.StatusBadRequest, "invalid input parameters")

func TestWithMessage(t *testing.T) {
	err := errSentinel.WithMessage("date is required")

	assert.Equal(t, "date is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.ErrorIs(t, err, errSentinel)
	assert.Equal(t, "invalid input parameters", errSentinel.Message)
}

func TestWithErr(t *testing.T) {
	cause := errors.New("token is expired")
	err := errSentinel.WithErr(cause)

	assert.Equal(t, errSentinel.Message, err.Error())
	assert.ErrorIs(t, err, errSentinel)
	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
}
