package fileloader

import (
	"strconv"
	"strings"

	"plotloader/app/interfaces"
)

// flatten converts a nested JSON object into one flat row. Nested object keys
// are joined with ".", array elements get an "[i]" suffix and prefix, when
// non-empty, is prepended to every key.
//
// Example:
//
//	{"a": {"b": 1}, "c": [{"d": 2}, 3]}  ->  a.b=1, c[0].d=2, c[1]=3
func flatten(obj *jsonNode, prefix string) *interfaces.Row {
	return flattenExcluding(obj, prefix, nil)
}

// flattenExcluding flattens obj but leaves out the subtree rooted at skip.
func flattenExcluding(obj *jsonNode, prefix string, skip *jsonNode) *interfaces.Row {
	row := interfaces.NewRow(len(obj.keys))
	flattenObject(row, obj, prefix, skip)
	return row
}

func flattenObject(row *interfaces.Row, obj *jsonNode, prefix string, skip *jsonNode) {
	for _, k := range obj.keys {
		v := obj.fields[k]
		if skip != nil && v == skip {
			continue
		}
		key := joinKey(prefix, k)
		switch v.kind {
		case jsonObject:
			flattenObject(row, v, key, skip)
		case jsonArray:
			flattenArray(row, v, key, skip)
		default:
			row.Set(key, v.scalar())
		}
	}
}

func flattenArray(row *interfaces.Row, arr *jsonNode, key string, skip *jsonNode) {
	for i, item := range arr.items {
		itemKey := key + "[" + strconv.Itoa(i) + "]"
		switch item.kind {
		case jsonObject:
			flattenObject(row, item, itemKey, skip)
		case jsonArray:
			flattenArray(row, item, itemKey, skip)
		default:
			row.Set(itemKey, item.scalar())
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

// isRecordArray reports whether n is a non-empty array holding only objects.
func isRecordArray(n *jsonNode) bool {
	if n.kind != jsonArray || len(n.items) == 0 {
		return false
	}
	for _, item := range n.items {
		if item.kind != jsonObject {
			return false
		}
	}
	return true
}

// findArrayPath walks obj depth first in key order and returns the first
// record array it meets with the key path leading to it. Arrays are not
// descended into.
func findArrayPath(obj *jsonNode, path []string) ([]string, *jsonNode) {
	for _, k := range obj.keys {
		v := obj.fields[k]
		p := append(path[:len(path):len(path)], k)
		if isRecordArray(v) {
			return p, v
		}
		if v.kind == jsonObject {
			if found, arr := findArrayPath(v, p); arr != nil {
				return found, arr
			}
		}
	}
	return nil, nil
}
