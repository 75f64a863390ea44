package fileloader

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"plotloader/app/interfaces"
)

// LoadFile reads the file at path and converts it into a table.
// The extension is checked before the file is opened.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*interfaces.Table, error) {
	if _, err := DetectFileType(path); err != nil {
		return nil, err
	}

	if opts.MaxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to stat file")
		}
		if info.Size() > opts.MaxBytes {
			return nil, errors.Wrapf(ErrFileTooLarge, "%s is %s, limit is %s",
				path, humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(opts.MaxBytes)))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	return LoadBytes(ctx, path, data, opts)
}

// LoadBytes converts file content into a table. name supplies the extension
// that selects the extractor; content is never sniffed for its format, only
// for compression and text encoding.
func LoadBytes(ctx context.Context, name string, data []byte, opts LoadOptions) (*interfaces.Table, error) {
	fileType, err := DetectFileType(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s is %s, limit is %s",
			name, humanize.Bytes(uint64(len(data))), humanize.Bytes(uint64(opts.MaxBytes)))
	}

	logger := opts.logger()

	decompressed, err := Decompress(data, opts.MaxBytes)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	text, encoding, err := DecodeText(decompressed.Data)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	level.Debug(logger).Log("msg", "decoded file content", "file", name, "type", fileType,
		"compression", decompressed.Compression, "encoding", encoding, "size", humanize.Bytes(uint64(len(text))))

	var table *interfaces.Table
	switch fileType {
	case FileTypeDelimited:
		table, err = ParseDelimited(text, name, ForcedDelimiter(name), logger)
	case FileTypeJSON:
		table, err = ParseJSON(text, name, opts.ArrayPath)
	case FileTypeXML:
		table, err = ParseXML(text, name)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if decompressed.Warning != "" {
		level.Warn(logger).Log("msg", "partial decompression", "file", name, "warning", decompressed.Warning)
		table.Warnings = append([]interfaces.ParseWarning{{Message: decompressed.Warning}}, table.Warnings...)
	}

	logLoaded(logger, table)
	return table, nil
}

func logLoaded(logger log.Logger, table *interfaces.Table) {
	kv := []any{"msg", "loaded file", "file", table.Source, "type", table.Type, "rows", table.Len(), "columns", len(table.Columns())}
	if len(table.ArrayPath) > 0 {
		kv = append(kv, "array_path", ArrayPathExpression(table.ArrayPath))
	}
	if len(table.Warnings) > 0 {
		kv = append(kv, "warnings", len(table.Warnings))
	}
	level.Debug(logger).Log(kv...)
}
