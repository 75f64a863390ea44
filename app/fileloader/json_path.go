package fileloader

import (
	"github.com/ohler55/ojg/jp"
	"github.com/pkg/errors"
)

// JSONPath helpers for the record array.
// Discovery reports the array it picked as a JSONPath expression, and callers
// may name the array themselves with the same notation when discovery picks
// the wrong one.

// ArrayPathExpression renders a key path as a JSONPath expression, e.g.
// ["properties", "periods"] -> "$.properties.periods". An empty path is the
// document root.
func ArrayPathExpression(path []string) string {
	x := jp.R()
	for _, key := range path {
		x = x.C(key)
	}
	return x.String()
}

// parseArrayPath turns a JSONPath expression into object keys. Only child
// selectors are accepted since rows are built from a single array.
func parseArrayPath(expression string) ([]string, error) {
	x, err := jp.ParseString(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid JSONPath expression %q", expression)
	}

	var path []string
	for _, frag := range x {
		switch f := frag.(type) {
		case jp.Root, jp.Bracket:
		case jp.Child:
			path = append(path, string(f))
		default:
			return nil, errors.Errorf("JSONPath expression %q: only child selectors are supported, got %q", expression, jp.Expr{frag}.String())
		}
	}
	return path, nil
}

// resolveArrayPath follows path from root and returns the array it names.
func resolveArrayPath(root *jsonNode, path []string) (*jsonNode, error) {
	node := root
	for i, key := range path {
		if node.kind != jsonObject {
			return nil, errors.Errorf("%s is a %s, not an object", ArrayPathExpression(path[:i]), node.kindName())
		}
		next, ok := node.fields[key]
		if !ok {
			return nil, errors.Errorf("%s does not exist", ArrayPathExpression(path[:i+1]))
		}
		node = next
	}
	if node.kind != jsonArray {
		return nil, errors.Errorf("%s is a %s, not an array", ArrayPathExpression(path), node.kindName())
	}
	return node, nil
}
