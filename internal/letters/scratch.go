package letters

import (
	"fmt"
	"os"
	"path/filepath"
)

// Scratch is the temporary directory the download path renders into. It
// is cleared at the start of every invocation; nothing in it survives a
// request on purpose.
type Scratch struct {
	dir string
}

func NewScratch(dir string) *Scratch {
	return &Scratch{dir: dir}
}

// Clean removes every file currently in the scratch directory, creating
// it if missing.
func (s *Scratch) Clean() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read scratch dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("clean scratch dir: %w", err)
		}
	}
	return nil
}

// Path returns an absolute path for a scratch file name.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.dir, name)
}
