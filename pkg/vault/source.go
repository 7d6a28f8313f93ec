package vault

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/mklimuk/orbit/pkg/task"
)

// Source reads task notes (frontmatter type: task) from a vault.
type Source struct {
	Root string
	// Exclude lists vault-relative directories to skip, such as the
	// directory a Store owns.
	Exclude []string
}

// NewSource creates a Source over the vault at root.
func NewSource(root string, exclude ...string) *Source {
	return &Source{Root: root, Exclude: exclude}
}

// Name identifies the source in logs.
func (s *Source) Name() string { return "vault" }

// Fetch walks the vault and returns one raw record per task note.
// Unreadable notes are logged and skipped.
func (s *Source) Fetch(ctx context.Context) ([]task.RawRecord, error) {
	var records []task.RawRecord
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, _ := filepath.Rel(s.Root, path)
		if d.IsDir() {
			if s.excluded(rel) || (strings.HasPrefix(d.Name(), ".") && path != s.Root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		note, err := ReadNote(path)
		if err != nil {
			log.Printf("Vault: skipping %s: %v", rel, err)
			return nil
		}
		fm, ok, err := ParseTaskFrontmatter(note)
		if err != nil {
			log.Printf("Vault: skipping %s: %v", rel, err)
			return nil
		}
		if !ok {
			return nil
		}
		records = append(records, fm.Record(rel, note.Content))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Source) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, ex := range s.Exclude {
		if filepath.ToSlash(filepath.Clean(ex)) == rel {
			return true
		}
	}
	return false
}
