package pool

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onlyReader hides any WriterTo implementation so the pooled buffer is used.
type onlyReader struct{ r io.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }

func TestCopy(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"smaller than buffer", 1000},
		{"exactly one buffer", CopyBufferSize},
		{"several buffers", 3*CopyBufferSize + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := bytes.Repeat([]byte{0xab}, tt.size)
			var dst bytes.Buffer

			n, err := Copy(&dst, onlyReader{bytes.NewReader(src)})
			require.NoError(t, err)
			assert.Equal(t, int64(tt.size), n)
			assert.Equal(t, src, dst.Bytes())
		})
	}
}

func TestCopy_PropagatesReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(bytes.NewReader([]byte("abc")), iotestErr{boom})

	var dst bytes.Buffer
	n, err := Copy(&dst, r)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(3), n)
}

type iotestErr struct{ err error }

func (e iotestErr) Read([]byte) (int, error) { return 0, e.err }

func TestPut_DropsForeignBuffers(t *testing.T) {
	small := make([]byte, 10)
	Put(&small)
	Put(nil)

	buf := Get()
	assert.Len(t, *buf, CopyBufferSize)
	Put(buf)
}
