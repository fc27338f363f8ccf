package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Newline(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a\nb\nc", SeparatorNewline, ""))
}

func TestSplit_TrimsAndDropsEmpties(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("  a  \n\n\n b \n  ", SeparatorNewline, ""))
}

func TestSplit_WindowsLineEndings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("a\r\nb", SeparatorNewline, ""))
}

func TestSplit_Custom(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a|b|c", SeparatorCustom, "|"))
}

func TestSplit_CustomEmptySeparatorFallsBackToNewline(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("a\nb", SeparatorCustom, ""))
}

func TestSplit_UnknownTypeFallsBackToNewline(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("a\nb", SeparatorType("regex"), ""))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, Count("a\nb\nc", SeparatorNewline, ""))
	assert.Equal(t, 0, Count("   ", SeparatorNewline, ""))
}

func TestCountSplits_Text(t *testing.T) {
	n, status := CountSplits(Source{Mode: ModeText, Text: "a\nb\nc"}, SeparatorNewline, "")
	assert.Equal(t, 3, n)
	assert.Equal(t, "Total splits: 3", status)
}

func TestCountSplits_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("a|b"), 0o644))

	n, status := CountSplits(Source{Mode: ModeFile, File: path}, SeparatorCustom, "|")
	assert.Equal(t, 2, n)
	assert.Equal(t, "Total splits: 2", status)
}

func TestCountSplits_InvalidSource(t *testing.T) {
	n, status := CountSplits(Source{Mode: ModeFile, File: ""}, SeparatorNewline, "")
	assert.Equal(t, 0, n)
	assert.Contains(t, status, "Error:")
}

func TestSource_PlaceholderCountsAsEmpty(t *testing.T) {
	_, err := Source{Mode: ModeText, Text: "Enter your text here..."}.Content()
	assert.Error(t, err)

	_, err = Source{Mode: ModeFile, File: "Enter the path to your text file here"}.Content()
	assert.Error(t, err)
}

func TestSource_Key(t *testing.T) {
	assert.Equal(t, "/tmp/x.txt", Source{Mode: ModeFile, File: "/tmp/x.txt", Text: "ignored"}.Key())
	assert.Equal(t, "inline", Source{Mode: ModeText, Text: "inline"}.Key())
}
