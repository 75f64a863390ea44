package fileloader

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	utf8BOM    = []byte{0xef, 0xbb, 0xbf}
	utf16LEBOM = []byte{0xff, 0xfe}
	utf16BEBOM = []byte{0xfe, 0xff}
)

// TextEncoding names the encoding the content was decoded from.
type TextEncoding string

const (
	EncodingUTF8    TextEncoding = "utf-8"
	EncodingUTF16LE TextEncoding = "utf-16le"
	EncodingUTF16BE TextEncoding = "utf-16be"
)

// DecodeText returns data as UTF-8 without a byte order mark. UTF-16 is only
// recognised by its BOM, which spreadsheet exports always write; content
// without a BOM is taken to be UTF-8 already.
func DecodeText(data []byte) ([]byte, TextEncoding, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		return data[len(utf8BOM):], EncodingUTF8, nil
	case bytes.HasPrefix(data, utf16LEBOM), bytes.HasPrefix(data, utf16BEBOM):
		enc := EncodingUTF16LE
		if bytes.HasPrefix(data, utf16BEBOM) {
			enc = EncodingUTF16BE
		}
		// ExpectBOM picks the byte order from the mark and drops it.
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, enc, errors.Wrapf(err, "decode %s", enc)
		}
		return out, enc, nil
	}
	return data, EncodingUTF8, nil
}
