package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteRepoFixture materializes a fake source tree under dir. Keys are
// relative file paths and values file contents. Returns dir for convenience.
func WriteRepoFixture(t testing.TB, dir string, files map[string]string) string {
	t.Helper()

	for rel, contents := range files {
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", target, err)
		}
		if err := os.WriteFile(target, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", target, err)
		}
	}
	return dir
}
