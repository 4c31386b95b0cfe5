package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression codecs accepted by OpenOutput.
const (
	None = "none"
	GZIP = "gzip"
	ZSTD = "zstd"
	LZ4  = "lz4"
)

// outputBufferSize is the write buffer in front of files and compressors.
const outputBufferSize = 256 * 1024

// Output is a buffered, optionally compressed export destination.
// Close flushes the buffer, finalizes the codec and closes the file.
type Output struct {
	*bufio.Writer
	Path      string
	closeFunc func() error
}

// Close implements io.Closer.
func (o *Output) Close() error {
	if err := o.Writer.Flush(); err != nil {
		o.closeFunc()
		return fmt.Errorf("flush output: %w", err)
	}
	return o.closeFunc()
}

// OpenOutput creates the destination for a file export. Path "-" writes to
// stdout. Compressed outputs get the codec's extension appended when missing.
func OpenOutput(path, compression string) (*Output, error) {
	codec := strings.ToLower(strings.TrimSpace(compression))
	if codec == "" {
		codec = None
	}

	var (
		dst      io.WriteCloser
		finalize func() error
		err      error
	)

	if path == "-" {
		dst = nopCloser{os.Stdout}
	} else {
		path = withExtension(path, codec)
		dst, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output: %w", err)
		}
	}

	var w io.Writer
	switch codec {
	case None:
		w = dst
		finalize = func() error { return nil }
	case GZIP:
		gz := gzip.NewWriter(dst)
		w, finalize = gz, gz.Close
	case ZSTD:
		zw, zerr := zstd.NewWriter(dst)
		if zerr != nil {
			dst.Close()
			return nil, fmt.Errorf("zstd writer: %w", zerr)
		}
		w, finalize = zw, zw.Close
	case LZ4:
		lw := lz4.NewWriter(dst)
		w, finalize = lw, lw.Close
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported compression %q (use none, gzip, zstd or lz4)", compression)
	}

	return &Output{
		Writer: bufio.NewWriterSize(w, outputBufferSize),
		Path:   path,
		closeFunc: func() error {
			var err error
			if cerr := finalize(); cerr != nil {
				err = cerr
			}
			if ferr := dst.Close(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}, nil
}

func withExtension(path, codec string) string {
	ext := map[string]string{GZIP: ".gz", ZSTD: ".zst", LZ4: ".lz4"}[codec]
	if ext == "" || strings.HasSuffix(strings.ToLower(path), ext) {
		return path
	}
	return path + ext
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
