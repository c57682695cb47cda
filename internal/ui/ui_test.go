package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errb bytes.Buffer
	oldOut, oldErr, oldTheme := Out, Err, current
	Out, Err = &out, &errb
	t.Cleanup(func() { Out, Err, current = oldOut, oldErr, oldTheme })
	return &out, &errb
}

func TestOKAndFailUseSeparateWriters(t *testing.T) {
	out, errb := capture(t)
	SetTheme("mono")

	OK("added Milk")
	Fail("store closed")

	assert.Equal(t, "ok added Milk\n", out.String())
	assert.Equal(t, "x store closed\n", errb.String())
}

func TestSetThemeFallsBackToClassic(t *testing.T) {
	capture(t)
	SetTheme("NEON")
	assert.Equal(t, "neon", Current().Name)
	SetTheme("sepia")
	assert.Equal(t, "classic", Current().Name)
}

func TestPanelFramesEveryLine(t *testing.T) {
	out, _ := capture(t)
	SetTheme("mono")

	Panel([]string{"Milk  2", "Eggs  12"})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "+"))
	assert.Contains(t, lines[1], "| Milk  2")
	assert.Contains(t, lines[2], "| Eggs  12")
	assert.True(t, strings.HasPrefix(lines[3], "+"))
}
