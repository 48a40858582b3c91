package driver

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// Algorithms lists the supported compression algorithms.
var Algorithms = []string{"gzip", "zlib", "bzip2", "snappy", "s2", "zstd"}

// Extension returns the file extension for a compression algorithm.
func Extension(algorithm string) (string, error) {
	switch algorithm {
	case "gzip":
		return ".gz", nil
	case "zlib":
		return ".zlib", nil
	case "bzip2":
		return ".bz2", nil
	case "snappy":
		return ".snappy", nil
	case "s2":
		return ".s2", nil
	case "zstd":
		return ".zst", nil
	default:
		return "", fmt.Errorf("%w: compression algorithm %q", ErrUnsupported, algorithm)
	}
}

// AlgorithmFor maps a file name to the algorithm its extension names, or ""
// when the file is not compressed.
func AlgorithmFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for _, algorithm := range Algorithms {
		if e, _ := Extension(algorithm); e == ext {
			return algorithm
		}
	}
	return ""
}

// NewCompressWriter wraps output in a compressor. Closing the returned
// writer flushes it but leaves output open.
func NewCompressWriter(algorithm string, output io.Writer) (io.WriteCloser, error) {
	switch algorithm {
	case "gzip":
		return gzip.NewWriter(output), nil
	case "zlib":
		return zlib.NewWriter(output), nil
	case "bzip2":
		return bzip2.NewWriter(output, &bzip2.WriterConfig{})
	case "snappy":
		return snappy.NewBufferedWriter(output), nil
	case "s2":
		return s2.NewWriter(output), nil
	case "zstd":
		return zstd.NewWriter(output)
	default:
		return nil, fmt.Errorf("%w: compression algorithm %q", ErrUnsupported, algorithm)
	}
}

// NewDecompressReader wraps input in the decompressor for algorithm.
func NewDecompressReader(algorithm string, input io.Reader) (io.ReadCloser, error) {
	switch algorithm {
	case "gzip":
		return gzip.NewReader(input)
	case "zlib":
		return zlib.NewReader(input)
	case "bzip2":
		return bzip2.NewReader(input, &bzip2.ReaderConfig{})
	case "snappy":
		return io.NopCloser(snappy.NewReader(input)), nil
	case "s2":
		return io.NopCloser(s2.NewReader(input)), nil
	case "zstd":
		dec, err := zstd.NewReader(input)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: compression algorithm %q", ErrUnsupported, algorithm)
	}
}

// OpenCompressed decompresses the image at path into memory. The algorithm
// is chosen from the file extension.
func OpenCompressed(fs afero.Fs, path string, sectorSize uint64) (*Memory, error) {
	algorithm := AlgorithmFor(path)
	if algorithm == "" {
		return nil, fmt.Errorf("%w: no compression extension on %s", ErrUnsupported, path)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r, err := NewDecompressReader(algorithm, f)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", algorithm, err)
	}
	defer func() {
		_ = r.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}

	return NewMemory(data, sectorSize), nil
}
