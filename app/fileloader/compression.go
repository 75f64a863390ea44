package fileloader

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression format of file content
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
)

// String returns the string representation of CompressionType
func (ct CompressionType) String() string {
	switch ct {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	default:
		return "none"
	}
}

// Magic byte signatures for compression detection
var (
	// Gzip magic bytes: 1f 8b
	gzipMagic = []byte{0x1f, 0x8b}
	// Bzip2 magic bytes: 42 5a 68 ("BZh")
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	// XZ magic bytes: fd 37 7a 58 5a 00
	xzMagic = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// DecompressionResult contains the decompressed data and any warning
type DecompressionResult struct {
	Data        []byte
	Compression CompressionType
	Warning     string // Non-empty if decompression was incomplete
}

// DetectCompression inspects the leading bytes of data. The file name is not
// consulted: a data.csv that holds gzip bytes is still a CSV file.
//
// bzip2's "BZh" prefix is also plausible text, so it additionally requires the
// block-size digit that bzip2 always writes next.
func DetectCompression(data []byte) CompressionType {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(data, xzMagic):
		return CompressionXZ
	case len(data) >= 4 && bytes.HasPrefix(data, bzip2Magic) && data[3] >= '1' && data[3] <= '9':
		return CompressionBzip2
	}
	return CompressionNone
}

// Decompress returns data unchanged when it is not compressed, otherwise the
// decompressed bytes. If decompression fails mid-stream after producing some
// output, the partial data is returned with a warning.
func Decompress(data []byte, maxBytes int64) (*DecompressionResult, error) {
	compressionType := DetectCompression(data)
	if compressionType == CompressionNone {
		return &DecompressionResult{Data: data}, nil
	}

	var reader io.Reader
	src := bytes.NewReader(data)

	switch compressionType {
	case CompressionGzip:
		gzReader, err := gzip.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gzip reader")
		}
		defer gzReader.Close()
		reader = gzReader

	case CompressionBzip2:
		reader = bzip2.NewReader(src)

	case CompressionXZ:
		xzReader, err := xz.NewReader(src)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create xz reader")
		}
		reader = xzReader
	}

	if maxBytes > 0 {
		// One extra byte tells "exactly at the limit" apart from "over it".
		reader = io.LimitReader(reader, maxBytes+1)
	}

	// Read all data, capturing any mid-stream errors
	var buf bytes.Buffer
	_, decompressErr := io.Copy(&buf, reader)

	result := &DecompressionResult{
		Data:        buf.Bytes(),
		Compression: compressionType,
	}

	if maxBytes > 0 && int64(len(result.Data)) > maxBytes {
		return nil, errors.Wrapf(ErrFileTooLarge, "decompressed content exceeds %d bytes", maxBytes)
	}

	// If there was an error during decompression but we got some data,
	// treat it as a partial success with a warning
	if decompressErr != nil {
		if len(result.Data) > 0 {
			result.Warning = fmt.Sprintf("decompression incomplete: %v; some data may be missing", decompressErr)
		} else {
			return nil, errors.Wrapf(decompressErr, "%s decompression failed", compressionType)
		}
	}

	return result, nil
}
