package utils

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestDecolorise(t *testing.T) {
	coloured := ColoredString("hello", color.FgRed)
	assert.Equal(t, "hello", Decolorise(coloured))
}

func TestSafeTruncate(t *testing.T) {
	assert.Equal(t, "abc", SafeTruncate("abcdef", 3))
	assert.Equal(t, "ab", SafeTruncate("ab", 5))
}
