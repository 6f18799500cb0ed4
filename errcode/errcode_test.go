package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, Fault, Of(Fault))
	assert.Equal(t, CommsError, Of(Wrap(CommsError, "collect", errors.New("nack"))))
	assert.Equal(t, Saturated, Of(fmt.Errorf("cycle: %w", Saturated)))
	assert.Equal(t, Error, Of(errors.New("boom")))
}

func TestWrappedIs(t *testing.T) {
	cause := errors.New("nack")
	err := Wrap(CommsError, "measure", cause)

	assert.ErrorIs(t, err, CommsError)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, Fault)
	assert.Equal(t, "measure: comms_error: nack", err.Error())
}
