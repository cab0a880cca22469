package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
)

// ArtifactName derives a content-addressed filename for a rendered
// artifact: the same composed source and format always map to the same
// name, making re-runs idempotent and concurrent writers collision-free.
func ArtifactName(composed, format string) string {
	sum := blake3.Sum256([]byte(composed))
	return fmt.Sprintf("typst-%x.%s", sum[:8], format)
}

// DirStore writes artifacts into a directory, created on first use.
type DirStore struct {
	Dir string

	mkdir sync.Once
	err   error
}

// Store persists the artifact under its content-addressed name. An
// artifact already on disk is left alone.
func (s *DirStore) Store(artifact []byte, format, composed string) (string, error) {
	s.mkdir.Do(func() {
		s.err = os.MkdirAll(s.Dir, 0o755)
	})
	if s.err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", s.err)
	}

	name := ArtifactName(composed, format)
	path := filepath.Join(s.Dir, name)

	if _, statErr := os.Stat(path); statErr == nil {
		return name, nil
	}

	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return name, nil
}
