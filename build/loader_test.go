package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFragmentLoader(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "parts"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "parts", "-nav.html"), []byte("<nav/>"), 0644); err != nil {
		t.Fatal(err)
	}

	load := fragmentLoader(root)

	got, err := load(context.Background(), "parts/-nav.html")
	if err != nil {
		t.Fatalf("loader error = %v", err)
	}
	if got != "<nav/>" {
		t.Errorf("loader content = %q, want %q", got, "<nav/>")
	}

	if _, err := load(context.Background(), "parts/-missing.html"); !os.IsNotExist(err) {
		t.Errorf("missing fragment error = %v, want not-exist", err)
	}
}

func TestFragmentLoader_EscapeRejected(t *testing.T) {
	load := fragmentLoader(t.TempDir())

	for _, p := range []string{"..", "../secret.txt", "../../etc/passwd"} {
		if _, err := load(context.Background(), p); err == nil {
			t.Errorf("loader accepted escaping path %q", p)
		} else if !strings.Contains(err.Error(), "escapes source root") {
			t.Errorf("loader error for %q = %v, want escape rejection", p, err)
		}
	}
}

func TestFragmentLoader_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fragmentLoader(t.TempDir())(ctx, "x.html"); err == nil {
		t.Error("loader with canceled context did not fail")
	}
}
