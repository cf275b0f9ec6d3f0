package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hinc/includer"
)

// fragmentLoader returns the registry-miss callback: it reads fragment files
// from disk rooted at the source directory. Targets are kept inside the root
// so a directive cannot reach outside the site tree.
func fragmentLoader(root string) includer.Loader {
	return func(ctx context.Context, p string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		full := filepath.Join(root, filepath.FromSlash(p))
		rel, err := filepath.Rel(root, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("fragment path escapes source root: %s", p)
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
