package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetQuietMode(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := capture(t)

	PrintInfo("Listing", "https://example.com/item")
	PrintWarning("No cookies", "gallery may be hidden")
	PrintError("Failed")
	PrintList([]string{"a", "b"})

	assert.Equal(t, "Listing: https://example.com/item\nNo cookies: gallery may be hidden\nFailed\n  - a\n  - b\n", buf.String())
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := capture(t)
	SetQuietMode(true)

	PrintSuccess("done")
	PrintHighlight("title")
	PrintError("broken", "reason")

	assert.Equal(t, "broken: reason\n", buf.String())
}

func TestColorize(t *testing.T) {
	capture(t)
	SetNoColor(false)
	assert.Equal(t, "\033[31mx\033[0m", Red("x"))
	SetNoColor(true)
	assert.Equal(t, "x", Red("x"))
}
