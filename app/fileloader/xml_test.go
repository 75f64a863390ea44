package fileloader

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotloader/app/interfaces"
)

func TestParseXML_ItemsWithAttributes(t *testing.T) {
	data := []byte(`<root><item id="1"><name>A</name></item><item id="2"><name>B</name></item></root>`)
	table, err := ParseXML(data, "items.xml")
	require.NoError(t, err)

	assert.Equal(t, FileTypeXML, table.Type)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"id", "name"}, table.Columns())
	assert.Equal(t, map[string]interfaces.Value{"id": str("1"), "name": str("A")}, rowValues(table.Rows[0]))
	assert.Equal(t, map[string]interfaces.Value{"id": str("2"), "name": str("B")}, rowValues(table.Rows[1]))
}

func TestParseXML_LeafChildren(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<readings>
  <v>10</v>
  <v>   </v>
  <w unit="C"/>
  <!-- ignored -->
  <v><![CDATA[ 12.5 ]]></v>
</readings>`)
	table, err := ParseXML(data, "readings.xml")
	require.NoError(t, err)

	require.Equal(t, 3, table.Len())
	assert.Equal(t, map[string]interfaces.Value{"v": str("10")}, rowValues(table.Rows[0]))
	assert.Equal(t, map[string]interfaces.Value{"unit": str("C")}, rowValues(table.Rows[1]))
	assert.Equal(t, map[string]interfaces.Value{"v": str("12.5")}, rowValues(table.Rows[2]))
}

func TestParseXML_GrandchildText(t *testing.T) {
	data := []byte(`<r>
  <i>
    <g><x>1</x> <y>2</y></g>
    <dup>first</dup>
    <empty/>
    <dup> last </dup>
  </i>
</r>`)
	table, err := ParseXML(data, "nested.xml")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	row := table.Rows[0]
	assert.Equal(t, []string{"g", "dup", "empty"}, row.Keys())
	assert.Equal(t, str("1 2"), row.Value("g"))
	assert.Equal(t, str("last"), row.Value("dup"))
	assert.Equal(t, str(""), row.Value("empty"))
}

func TestParseXML_EmptyChildrenDropped(t *testing.T) {
	table, err := ParseXML([]byte(`<r><a/><b> </b></r>`), "empty.xml")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Columns())
}

func TestParseXML_LocalNames(t *testing.T) {
	data := []byte(`<r xmlns:p="urn:example"><p:item p:id="7"><p:name>N</p:name></p:item></r>`)
	table, err := ParseXML(data, "ns.xml")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, str("7"), table.Rows[0].Value("id"))
	assert.Equal(t, str("N"), table.Rows[0].Value("name"))
}

func TestParseXML_DeclaredEncoding(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><r><city>Z\xfcrich</city></r>")
	table, err := ParseXML(data, "latin1.xml")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, str("Zürich"), table.Rows[0].Value("city"))
}

func TestParseXML_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "unclosed element", input: `<root><item></root>`},
		{name: "truncated", input: `<root><item>`},
		{name: "empty document", input: ``},
		{name: "only a declaration", input: `<?xml version="1.0"?>`},
		{name: "two root elements", input: `<a/><b/>`},
		{name: "text after root", input: `<a/>junk`},
		{name: "text before root", input: `junk<a/>`},
		{name: "bad attribute", input: `<a b=1/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseXML([]byte(tt.input), "bad.xml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrXMLParse), "got %v", err)
		})
	}
}
