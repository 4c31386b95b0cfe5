package export

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenOutput_Codecs(t *testing.T) {
	readers := map[string]func(io.Reader) (io.Reader, error){
		None: func(r io.Reader) (io.Reader, error) { return r, nil },
		GZIP: func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) },
		ZSTD: func(r io.Reader) (io.Reader, error) { return zstd.NewReader(r) },
		LZ4:  func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil },
	}

	for codec, open := range readers {
		t.Run(codec, func(t *testing.T) {
			out, err := OpenOutput(filepath.Join(t.TempDir(), "products.json"), codec)
			require.NoError(t, err)

			_, err = Run(context.Background(), newFakeSource(3), out, Envelope{}, Options{})
			require.NoError(t, err)
			require.NoError(t, out.Close())

			f, err := os.Open(out.Path)
			require.NoError(t, err)
			defer f.Close()

			r, err := open(f)
			require.NoError(t, err)
			data, err := io.ReadAll(r)
			require.NoError(t, err)

			doc := decode(t, data)
			assert.EqualValues(t, 3, doc["total"])
		})
	}
}

func TestOpenOutput_Extension(t *testing.T) {
	dir := t.TempDir()

	out, err := OpenOutput(filepath.Join(dir, "export.json"), ZSTD)
	require.NoError(t, err)
	require.NoError(t, out.Close())
	assert.Equal(t, filepath.Join(dir, "export.json.zst"), out.Path)

	out, err = OpenOutput(filepath.Join(dir, "export.json.gz"), GZIP)
	require.NoError(t, err)
	require.NoError(t, out.Close())
	assert.Equal(t, filepath.Join(dir, "export.json.gz"), out.Path)
}

func TestOpenOutput_UnknownCodec(t *testing.T) {
	_, err := OpenOutput(filepath.Join(t.TempDir(), "x.json"), "brotli")
	assert.ErrorContains(t, err, "unsupported compression")
}
