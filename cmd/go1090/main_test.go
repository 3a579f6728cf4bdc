package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	err := configError{assert.AnError}
	assert.Equal(t, assert.AnError.Error(), err.Error())
	assert.Equal(t, assert.AnError, err.Unwrap())
}

func TestIOError(t *testing.T) {
	err := ioError{assert.AnError}
	assert.Equal(t, assert.AnError.Error(), err.Error())
	assert.Equal(t, assert.AnError, err.Unwrap())
}
