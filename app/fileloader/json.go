package fileloader

import (
	"strconv"

	"github.com/ohler55/ojg/oj"
	"github.com/pkg/errors"

	"plotloader/app/interfaces"
)

// JSON file reading and ingestion functions.
// Documents are tokenized with ojg into an insertion-ordered tree so that
// key order, which decides array discovery and column order, survives
// parsing. Go maps would lose it.

type jsonKind int

const (
	jsonNull jsonKind = iota
	jsonString
	jsonNumber
	jsonBool
	jsonObject
	jsonArray
)

// jsonNode is one parsed JSON value. Only the fields matching kind are set.
type jsonNode struct {
	kind jsonKind
	str  string
	num  float64
	b    bool

	keys   []string
	fields map[string]*jsonNode
	items  []*jsonNode
}

func newObjectNode() *jsonNode {
	return &jsonNode{kind: jsonObject, fields: make(map[string]*jsonNode)}
}

// set assigns a field. A repeated key keeps its first position and takes the last value.
func (n *jsonNode) set(key string, v *jsonNode) {
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
}

// scalar converts a leaf node to a row value.
func (n *jsonNode) scalar() interfaces.Value {
	switch n.kind {
	case jsonString:
		return interfaces.String(n.str)
	case jsonNumber:
		return interfaces.Number(n.num)
	case jsonBool:
		return interfaces.Bool(n.b)
	default:
		return interfaces.Null()
	}
}

// treeBuilder receives ojg tokenizer callbacks and assembles jsonNodes.
// Every complete top-level value lands in roots.
type treeBuilder struct {
	stack []*jsonNode
	keys  []string // pending key per open container; unused for arrays
	roots []*jsonNode
}

func (b *treeBuilder) add(n *jsonNode) {
	if len(b.stack) == 0 {
		b.roots = append(b.roots, n)
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.kind == jsonObject {
		top.set(b.keys[len(b.keys)-1], n)
		return
	}
	top.items = append(top.items, n)
}

func (b *treeBuilder) push(n *jsonNode) {
	b.add(n)
	b.stack = append(b.stack, n)
	b.keys = append(b.keys, "")
}

func (b *treeBuilder) pop() {
	if len(b.stack) == 0 {
		return
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.keys = b.keys[:len(b.keys)-1]
}

func (b *treeBuilder) Null() { b.add(&jsonNode{kind: jsonNull}) }
func (b *treeBuilder) Bool(v bool) { b.add(&jsonNode{kind: jsonBool, b: v}) }
func (b *treeBuilder) Int(v int64) { b.add(&jsonNode{kind: jsonNumber, num: float64(v)}) }
func (b *treeBuilder) Float(v float64) { b.add(&jsonNode{kind: jsonNumber, num: v}) }
func (b *treeBuilder) String(v string) { b.add(&jsonNode{kind: jsonString, str: v}) }
func (b *treeBuilder) ObjectStart() { b.push(newObjectNode()) }
func (b *treeBuilder) ObjectEnd() { b.pop() }
func (b *treeBuilder) ArrayStart() { b.push(&jsonNode{kind: jsonArray}) }
func (b *treeBuilder) ArrayEnd() { b.pop() }

// Number receives numbers too large for int64/float64 literals; they keep
// whatever precision float64 gives them.
func (b *treeBuilder) Number(v string) {
	f, _ := strconv.ParseFloat(v, 64)
	b.add(&jsonNode{kind: jsonNumber, num: f})
}

func (b *treeBuilder) Key(k string) {
	if len(b.keys) > 0 {
		b.keys[len(b.keys)-1] = k
	}
}

// tokenizeJSON returns every top-level value in data.
func tokenizeJSON(data []byte) ([]*jsonNode, error) {
	b := &treeBuilder{}
	if err := oj.Tokenize(data, b); err != nil {
		return nil, err
	}
	if len(b.stack) != 0 {
		return nil, errors.New("unexpected end of input")
	}
	return b.roots, nil
}

// parseJSONData parses JSON data from bytes.
// It supports both standard JSON and JSON streaming format: several objects
// or arrays separated by whitespace, as written by JSON Lines exporters.
// A stream is returned as one array holding each value.
func parseJSONData(data []byte) (*jsonNode, error) {
	roots, err := tokenizeJSON(data)
	if err != nil {
		// If standard JSON parsing fails, try JSON streaming format
		streamed, streamErr := parseJSONStream(data)
		if streamErr != nil || len(streamed) == 0 {
			return nil, errors.Wrap(ErrJSONSyntax, err.Error())
		}
		roots = streamed
	}

	switch len(roots) {
	case 0:
		return nil, errors.Wrap(ErrJSONSyntax, "no JSON value found")
	case 1:
		return roots[0], nil
	}
	// Only objects and arrays may follow one another.
	for i, root := range roots {
		if root.kind != jsonObject && root.kind != jsonArray {
			return nil, errors.Wrapf(ErrJSONSyntax, "value %d of the stream is a %s, want an object or array", i+1, root.kindName())
		}
	}
	return &jsonNode{kind: jsonArray, items: roots}, nil
}

// parseJSONStream extracts multiple JSON values from a byte stream.
// It handles objects and arrays that may span multiple lines or appear multiple times per line.
func parseJSONStream(data []byte) ([]*jsonNode, error) {
	var values []*jsonNode
	pos := 0

	for pos < len(data) {
		// Skip whitespace
		for pos < len(data) && (data[pos] == ' ' || data[pos] == '\t' || data[pos] == '\n' || data[pos] == '\r') {
			pos++
		}
		if pos >= len(data) {
			break
		}

		// Find the start of a JSON value
		if data[pos] != '{' && data[pos] != '[' {
			return nil, errors.Errorf("expected { or [ at position %d", pos)
		}

		// Extract one complete JSON value (object or array)
		start := pos
		end, err := findJSONValueEnd(data, pos)
		if err != nil {
			return nil, err
		}

		roots, err := tokenizeJSON(data[start:end])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse JSON at position %d", start)
		}
		if len(roots) != 1 {
			return nil, errors.Errorf("expected one JSON value at position %d", start)
		}
		values = append(values, roots[0])
		pos = end
	}

	return values, nil
}

// findJSONValueEnd finds the end position of a JSON value (object or array) starting at pos.
// It properly handles nested objects/arrays and strings with escape sequences.
func findJSONValueEnd(data []byte, pos int) (int, error) {
	var stack []byte
	inString := false
	escaped := false

	for i := pos; i < len(data); i++ {
		ch := data[i]

		if escaped {
			escaped = false
			continue
		}

		if inString {
			if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return 0, errors.Errorf("unmatched } at position %d", i)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, nil
			}
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return 0, errors.Errorf("unmatched ] at position %d", i)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, nil
			}
		}
	}

	return 0, errors.New("unclosed JSON value")
}

// ParseJSON parses a JSON document and converts it into a table.
//
//   - A root array yields one row per element.
//   - A root object containing an array of objects somewhere below it yields
//     one row per element of the first such array (pre-order, key order), each
//     carrying the flattened fields of everything outside that array.
//   - Any other root object yields a single flattened row.
//
// Scalar and null roots fail with ErrUnsupportedJSONStructure.
//
// A non-empty arrayPath (a JSONPath expression of child selectors such as
// "$.properties.periods") names the record array instead of discovering it.
func ParseJSON(data []byte, source string, arrayPath string) (*interfaces.Table, error) {
	root, err := parseJSONData(data)
	if err != nil {
		return nil, errors.WithMessage(err, source)
	}

	var rows []*interfaces.Row
	var path []string
	if arrayPath != "" {
		rows, path, err = extractJSONRowsAt(root, arrayPath)
	} else {
		rows, path, err = extractJSONRows(root)
	}
	if err != nil {
		return nil, errors.WithMessage(err, source)
	}

	return &interfaces.Table{
		Source:    source,
		Type:      FileTypeJSON,
		ArrayPath: path,
		Rows:      rows,
	}, nil
}

// extractJSONRows applies the row-building rules to a parsed document and
// returns the rows together with the array path used, if any.
func extractJSONRows(root *jsonNode) ([]*interfaces.Row, []string, error) {
	switch root.kind {
	case jsonArray:
		rows := make([]*interfaces.Row, 0, len(root.items))
		for _, item := range root.items {
			rows = append(rows, elementRow(item))
		}
		return rows, nil, nil

	case jsonObject:
		path, arr := findArrayPath(root, nil)
		if arr == nil {
			return []*interfaces.Row{flatten(root, "")}, nil, nil
		}

		return arrayRows(root, path, arr), path, nil
	}

	return nil, nil, errors.Wrapf(ErrUnsupportedJSONStructure, "root is a %s, want an object or array", root.kindName())
}

// extractJSONRowsAt builds rows from the array named by expression.
func extractJSONRowsAt(root *jsonNode, expression string) ([]*interfaces.Row, []string, error) {
	path, err := parseArrayPath(expression)
	if err != nil {
		return nil, nil, err
	}
	if len(path) == 0 {
		return extractJSONRows(root)
	}
	arr, err := resolveArrayPath(root, path)
	if err != nil {
		return nil, nil, errors.Wrap(ErrUnsupportedJSONStructure, err.Error())
	}
	return arrayRows(root, path, arr), path, nil
}

// arrayRows produces one row per element of arr, each starting with the
// flattened fields of root outside arr. Element keys are prefixed with path.
func arrayRows(root *jsonNode, path []string, arr *jsonNode) []*interfaces.Row {
	prefix := joinPath(path)
	base := flattenExcluding(root, "", arr)
	rows := make([]*interfaces.Row, 0, len(arr.items))
	for _, item := range arr.items {
		row := base.Clone()
		switch item.kind {
		case jsonObject:
			flattenObject(row, item, prefix, nil)
		case jsonArray:
			flattenArray(row, item, prefix, nil)
		default:
			row.Set(prefix, item.scalar())
		}
		rows = append(rows, row)
	}
	return rows
}

// elementRow converts one element of a root array into a row.
func elementRow(item *jsonNode) *interfaces.Row {
	switch item.kind {
	case jsonObject:
		return flatten(item, "")
	case jsonArray:
		row := interfaces.NewRow(len(item.items))
		flattenArray(row, item, "value", nil)
		return row
	default:
		row := interfaces.NewRow(1)
		row.Set("value", item.scalar())
		return row
	}
}

func (n *jsonNode) kindName() string {
	switch n.kind {
	case jsonString:
		return "string"
	case jsonNumber:
		return "number"
	case jsonBool:
		return "boolean"
	case jsonObject:
		return "object"
	case jsonArray:
		return "array"
	default:
		return "null"
	}
}
