package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestWatchTree(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "file.html"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := watchTree(w, root); err != nil {
		t.Fatalf("watchTree() error = %v", err)
	}

	watched := make(map[string]bool)
	for _, p := range w.WatchList() {
		watched[p] = true
	}
	for _, dir := range []string{root, filepath.Join(root, "a"), nested} {
		if !watched[dir] {
			t.Errorf("directory %s is not watched", dir)
		}
	}
	if watched[filepath.Join(nested, "file.html")] {
		t.Error("regular file should not be watched directly")
	}
}
