package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteNote writes a note to the specified path
func WriteNote(note *Note) error {
	fmData, err := yaml.Marshal(note.Frontmatter)
	if err != nil {
		return fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	content := fmt.Sprintf("---\n%s---\n%s", string(fmData), note.Content)

	if err := os.MkdirAll(filepath.Dir(note.Path), 0755); err != nil {
		return err
	}
	return os.WriteFile(note.Path, []byte(content), 0644)
}

// SanitizeFilename removes characters invalid in filenames.
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalid {
		name = strings.ReplaceAll(name, char, "-")
	}
	return strings.TrimSpace(name)
}
