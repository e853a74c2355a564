//go:build !integration

package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValidationError(t *testing.T) {
	assert.Empty(t, FormatValidationError(nil))
	assert.Contains(t, FormatValidationError(errors.New("config is broken")), "config is broken")

	var buf bytes.Buffer
	PrintValidationError(&buf, nil)
	assert.Empty(t, buf.String())

	PrintValidationError(&buf, errors.New("file not found: x.yml"))
	assert.Contains(t, buf.String(), "file not found: x.yml\n")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "<stdin>", displayName(stdinName))
	assert.Equal(t, "a/b.yml", displayName("./a/b.yml"))
	assert.Equal(t, "a/b.yml", displayName("a/b.yml"))
}
