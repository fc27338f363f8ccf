package batch

import (
	"fmt"
	"os"
	"strings"
)

// InputMode selects where batch text comes from.
type InputMode string

const (
	// ModeText reads prompts from inline text.
	ModeText InputMode = "text"

	// ModeFile reads prompts from a text file on disk.
	ModeFile InputMode = "file"
)

// Default widget placeholders. Input equal to a placeholder counts as empty.
const (
	filePlaceholder = "Enter the path to your text file here"
	textPlaceholder = "Enter your text here..."
)

// Source is a batch text input: either inline text or a file path.
type Source struct {
	Mode InputMode
	File string
	Text string
}

// Key returns the value identifying this input for reset detection: the file
// path in file mode, the text itself in text mode.
func (s Source) Key() string {
	if s.Mode == ModeFile {
		return s.File
	}
	return s.Text
}

// Content validates the source and returns its text. Error messages mirror
// the status strings the host displays.
func (s Source) Content() (string, error) {
	if s.Mode == ModeFile {
		if strings.TrimSpace(s.File) == "" || s.File == filePlaceholder {
			return "", fmt.Errorf("Please provide a valid file path")
		}
		data, err := os.ReadFile(s.File)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("File not found: %s", s.File)
			}
			return "", fmt.Errorf("Cannot read file: %s", s.File)
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			return "", fmt.Errorf("File is empty")
		}
		return content, nil
	}

	if strings.TrimSpace(s.Text) == "" || s.Text == textPlaceholder {
		return "", fmt.Errorf("Please provide input text")
	}
	return s.Text, nil
}
