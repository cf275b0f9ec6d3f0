package build

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"hinc/includer"
)

// loadData reads the optional JSON data tree for the build. An empty path
// yields an empty tree so data directives degrade to their defaults.
func loadData(path string) (cty.Value, error) {
	if path == "" {
		return cty.EmptyObjectVal, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cty.EmptyObjectVal, err
	}
	v, err := includer.ParseData(raw)
	if err != nil {
		return cty.EmptyObjectVal, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return v, nil
}

// defaultCapabilities is the capability table the CLI exposes to inline
// expressions. Library users of the includer package supply their own.
func defaultCapabilities() includer.Table {
	return includer.Table{
		"env": func(_ context.Context, args []cty.Value) (cty.Value, error) {
			if len(args) != 1 || args[0].Type() != cty.String {
				return cty.NilVal, fmt.Errorf("env expects one string argument")
			}
			return cty.StringVal(os.Getenv(args[0].AsString())), nil
		},
		"upper": func(_ context.Context, args []cty.Value) (cty.Value, error) {
			if len(args) != 1 || args[0].Type() != cty.String {
				return cty.NilVal, fmt.Errorf("upper expects one string argument")
			}
			return cty.StringVal(strings.ToUpper(args[0].AsString())), nil
		},
		"lower": func(_ context.Context, args []cty.Value) (cty.Value, error) {
			if len(args) != 1 || args[0].Type() != cty.String {
				return cty.NilVal, fmt.Errorf("lower expects one string argument")
			}
			return cty.StringVal(strings.ToLower(args[0].AsString())), nil
		},
	}
}
