package fileloader

import (
	"strings"

	"github.com/pkg/errors"
)

// delimitedExtensions maps delimited-text extensions to a forced delimiter.
// A zero rune means the delimiter is detected from the content.
var delimitedExtensions = map[string]rune{
	"csv": 0,
	"tsv": '\t',
	"txt": 0,
}

// Extension returns the lower-cased substring after the last '.' of name,
// or "" when name has no dot.
func Extension(name string) string {
	lastDot := strings.LastIndex(name, ".")
	if lastDot == -1 {
		return ""
	}
	return strings.ToLower(name[lastDot+1:])
}

// DetectFileType determines the file type based on the file extension.
//
// Supported file types:
//   - Delimited text (.csv, .tsv, .txt)
//   - JSON (.json)
//   - XML (.xml)
//
// Anything else fails with ErrUnsupportedFileType.
func DetectFileType(name string) (FileType, error) {
	ext := Extension(name)
	if _, ok := delimitedExtensions[ext]; ok {
		return FileTypeDelimited, nil
	}
	switch ext {
	case "json":
		return FileTypeJSON, nil
	case "xml":
		return FileTypeXML, nil
	}
	return FileTypeUnknown, errors.Wrapf(ErrUnsupportedFileType, "%q (extension %q)", name, ext)
}

// ForcedDelimiter returns the delimiter implied by the extension of name,
// or 0 when it must be detected.
func ForcedDelimiter(name string) rune {
	return delimitedExtensions[Extension(name)]
}

// IsSupported reports whether name has one of the accepted extensions.
func IsSupported(name string) bool {
	_, err := DetectFileType(name)
	return err == nil
}
