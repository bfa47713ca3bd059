package domainerrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCause = errors.New("cause")

func TestWrapKeepsCauseReachable(t *testing.T) {
	err := Wrap(errCause, CodeConflict, "name taken")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errCause))
	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, "name taken: cause", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeOnPlainError(t *testing.T) {
	assert.False(t, HasCode(errCause, CodeInternal))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation: http.StatusBadRequest,
		CodeForbidden:  http.StatusForbidden,
		CodeConflict:   http.StatusConflict,
		CodeNotFound:   http.StatusNotFound,
		CodeInternal:   http.StatusInternalServerError,
		Code("other"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
