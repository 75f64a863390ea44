package fileloader

import (
	"strconv"
	"strings"
)

// excelColumnName converts a 0-based index to Excel-style column name.
// Examples: 0 -> A, 1 -> B, 25 -> Z, 26 -> AA, 27 -> AB, 701 -> ZZ, 702 -> AAA
func excelColumnName(index int) string {
	result := ""
	index++ // Convert to 1-based for the algorithm

	for index > 0 {
		index-- // Adjust for 0-based letter indexing
		result = string(rune('A'+index%26)) + result
		index /= 26
	}

	return result
}

// NormalizeHeaders turns a delimited header row into usable, unique column keys.
//
// Rules:
//   - Empty or whitespace-only headers become Unnamed_A, Unnamed_B, ..., Unnamed_Z, Unnamed_AA, ...
//   - A repeated header gets a numeric suffix: the second "a" is "a_1", the third "a_2"
//   - Everything else is preserved as-is (no trimming of inner or edge spaces)
//
// Example:
//
//	Input:  ["name", "", "age", "  ", "name"]
//	Output: ["name", "Unnamed_A", "age", "Unnamed_B", "name_1"]
func NormalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	emptyCount := 0
	used := make(map[string]bool, len(header))
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			used[h] = true
		}
	}
	seen := make(map[string]int, len(header))

	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			// Skip generated names that collide with a real header
			name := "Unnamed_" + excelColumnName(emptyCount)
			for used[name] {
				emptyCount++
				name = "Unnamed_" + excelColumnName(emptyCount)
			}
			emptyCount++
			used[name] = true
			normalized[i] = name
			continue
		}

		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			normalized[i] = h
			continue
		}
		name := h + "_" + strconv.Itoa(n)
		for used[name] {
			n++
			name = h + "_" + strconv.Itoa(n)
		}
		seen[h] = n + 1
		used[name] = true
		normalized[i] = name
	}

	return normalized
}
