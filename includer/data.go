package includer

import (
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ParseData decodes a JSON document into the data tree value used by data
// and json-insert directives.
func ParseData(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.EmptyObjectVal, err
	}
	return ctyjson.Unmarshal(data, ty)
}

// ResolveData descends the data tree one dotted-path segment at a time:
// attribute or key match for string segments, index access for numeric
// segments. Any absent segment or out of range index yields the default -
// permissive lookup is deliberate so templates degrade gracefully instead of
// failing a whole build over absent optional data. Resolution never fails
// and never mutates the tree.
func ResolveData(tree cty.Value, dotted string, def string) cty.Value {
	fallback := cty.StringVal(def)
	if dotted == "" {
		return fallback
	}

	cur := tree
	for _, seg := range strings.Split(dotted, ".") {
		if cur == cty.NilVal || cur.IsNull() {
			return fallback
		}
		ty := cur.Type()

		if idx, err := strconv.Atoi(seg); err == nil && (ty.IsTupleType() || ty.IsListType()) {
			if idx < 0 || idx >= cur.LengthInt() {
				return fallback
			}
			cur = cur.Index(cty.NumberIntVal(int64(idx)))
			continue
		}

		switch {
		case ty.IsObjectType():
			if !ty.HasAttribute(seg) {
				return fallback
			}
			cur = cur.GetAttr(seg)
		case ty.IsMapType():
			key := cty.StringVal(seg)
			if !cur.HasIndex(key).True() {
				return fallback
			}
			cur = cur.Index(key)
		default:
			// scalar or indexable reached with a non-matching segment
			return fallback
		}
	}
	if cur.IsNull() {
		// a present-but-null leaf degrades to the default as well
		return fallback
	}
	return cur
}

// FormatValue serializes a resolved value for splicing into the document.
// Output modes: "" - strings verbatim, everything else as JSON text;
// "raw" - coerce to string when possible; "json" - always JSON text.
func FormatValue(v cty.Value, mode string) (string, error) {
	if v == cty.NilVal || v.IsNull() {
		return "", nil
	}
	switch mode {
	case "json":
		return marshalJSON(v)
	case "raw":
		if s, err := convert.Convert(v, cty.String); err == nil {
			return s.AsString(), nil
		}
		return marshalJSON(v)
	default:
		if v.Type() == cty.String {
			return v.AsString(), nil
		}
		return marshalJSON(v)
	}
}

func marshalJSON(v cty.Value) (string, error) {
	data, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
