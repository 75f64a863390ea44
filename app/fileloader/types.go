package fileloader

import (
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"plotloader/app/interfaces"
)

// Package fileloader turns raw file content into an interfaces.Table. It owns
// extension dispatch, content decoding (decompression, BOM/UTF-16) and the
// three row extractors: delimited text, JSON and XML.

// FileType is re-exported so callers of the loader rarely need the
// interfaces package.
type FileType = interfaces.FileType

const (
	FileTypeUnknown   = interfaces.FileTypeUnknown
	FileTypeDelimited = interfaces.FileTypeDelimited
	FileTypeJSON      = interfaces.FileTypeJSON
	FileTypeXML       = interfaces.FileTypeXML
)

// Ingestion errors. Callers test for them with errors.Is; the returned error
// carries the file name and the parser's reason.
var (
	ErrUnsupportedFileType      = errors.New("unsupported file type")
	ErrXMLParse                 = errors.New("xml parse error")
	ErrJSONSyntax               = errors.New("json syntax error")
	ErrUnsupportedJSONStructure = errors.New("unsupported json structure")
	ErrFileTooLarge             = errors.New("file too large")
)

// LoadOptions controls a single ingestion pass.
type LoadOptions struct {
	// MaxBytes rejects content (after decompression) larger than this. 0 disables the check.
	MaxBytes int64
	// ArrayPath names the JSON record array as a JSONPath expression
	// ("$.data.items"). Empty means discover it.
	ArrayPath string
	// Logger receives parse warnings. Nil discards them.
	Logger log.Logger
}

// DefaultLoadOptions returns the default ingestion options
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{}
}

func (o LoadOptions) logger() log.Logger {
	if o.Logger == nil {
		return log.NewNopLogger()
	}
	return o.Logger
}
