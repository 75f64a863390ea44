package fileloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotloader/app/interfaces"
)

func TestGuessDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected rune
	}{
		{name: "comma", input: "a,b,c\n1,2,3\n4,5,6\n", expected: ','},
		{name: "tab", input: "a\tb\n1\t2\n", expected: '\t'},
		{name: "pipe", input: "a|b|c\n1|2|3\n", expected: '|'},
		{name: "semicolon with decimal commas", input: "a;b\n1,5;2,5\n3,5;4\n", expected: ';'},
		{name: "single column falls back to comma", input: "a\n1\n2\n", expected: ','},
		{name: "empty", input: "", expected: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GuessDelimiter([]byte(tt.input)))
		})
	}
}

func TestParseDelimited_Basic(t *testing.T) {
	table, err := ParseDelimited([]byte("x,y\n1,2\n\n3,4\n"), "data.csv", 0, nil)
	require.NoError(t, err)

	assert.Equal(t, FileTypeDelimited, table.Type)
	assert.Equal(t, ',', table.Delimiter)
	assert.Equal(t, []string{"x", "y"}, table.Columns())
	require.Equal(t, 2, table.Len())
	// No type inference: numbers stay strings.
	assert.Equal(t, interfaces.String("3"), table.Rows[1].Value("x"))
	assert.Empty(t, table.Warnings)
}

func TestParseDelimited_ForcedDelimiter(t *testing.T) {
	table, err := ParseDelimited([]byte("a,b\tc\n1,2\t3\n"), "data.tsv", '\t', nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c"}, table.Columns())
	assert.Equal(t, interfaces.String("1,2"), table.Rows[0].Value("a,b"))
}

func TestParseDelimited_QuotedFields(t *testing.T) {
	table, err := ParseDelimited([]byte("name,note\n\"Smith, J\",\"said \"\"hi\"\"\"\n"), "data.csv", 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, interfaces.String("Smith, J"), table.Rows[0].Value("name"))
	assert.Equal(t, interfaces.String(`said "hi"`), table.Rows[0].Value("note"))
}

func TestParseDelimited_RaggedRows(t *testing.T) {
	table, err := ParseDelimited([]byte("a,b,c\n1,2\n4,5,6,7\n8,9,10\n"), "data.csv", 0, nil)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	short := table.Rows[0]
	assert.Equal(t, []string{"a", "b"}, short.Keys())
	assert.True(t, short.Value("c").IsAbsent())

	long := table.Rows[1]
	assert.Equal(t, []string{"a", "b", "c"}, long.Keys())
	assert.Equal(t, interfaces.String("6"), long.Value("c"))

	require.Len(t, table.Warnings, 2)
	assert.Equal(t, 2, table.Warnings[0].Line)
	assert.Contains(t, table.Warnings[0].Message, "too few fields")
	assert.Equal(t, 3, table.Warnings[1].Line)
	assert.Contains(t, table.Warnings[1].Message, "too many fields")
}

func TestParseDelimited_HeaderNormalization(t *testing.T) {
	table, err := ParseDelimited([]byte(",a,a, \n1,2,3,4\n"), "data.csv", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unnamed_A", "a", "a_1", "Unnamed_B"}, table.Columns())
}

func TestParseDelimited_HeaderOnlyAndEmpty(t *testing.T) {
	table, err := ParseDelimited([]byte("a,b\n"), "data.csv", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Columns())

	table, err = ParseDelimited(nil, "data.csv", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestParseDelimited_WarningCap(t *testing.T) {
	data := []byte("a,b\n")
	for i := 0; i < maxRecordedWarnings+20; i++ {
		data = append(data, "1\n"...)
	}
	table, err := ParseDelimited(data, "data.csv", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, maxRecordedWarnings+20, table.Len())
	assert.Len(t, table.Warnings, maxRecordedWarnings)
}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "untouched",
			input:    []string{"name", " spaced ", "age"},
			expected: []string{"name", " spaced ", "age"},
		},
		{
			name:     "empty headers",
			input:    []string{"name", "", "age", "  ", "name"},
			expected: []string{"name", "Unnamed_A", "age", "Unnamed_B", "name_1"},
		},
		{
			name:     "generated name collides with real header",
			input:    []string{"Unnamed_A", ""},
			expected: []string{"Unnamed_A", "Unnamed_B"},
		},
		{
			name:     "suffix collides with real header",
			input:    []string{"a", "a", "a_1"},
			expected: []string{"a", "a_2", "a_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHeaders(tt.input))
		})
	}
}

func TestExcelColumnName(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for in, want := range cases {
		assert.Equal(t, want, excelColumnName(in))
	}
}
