package imageio_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/imageio"
)

func TestReadAtWriteAt_NoPersistentCursor(t *testing.T) {
	buf := make([]byte, 64)
	img, err := imageio.NewFromReadWriteSeeker("mem", bytesextra.NewReadWriteSeeker(buf))
	require.Nil(t, err)

	require.Nil(t, img.WriteAt(32, []byte("hello")))
	require.Nil(t, img.WriteAt(0, []byte("world")))

	got, rerr := img.ReadAt(32, 5)
	require.Nil(t, rerr)
	require.Equal(t, "hello", string(got))

	got, rerr = img.ReadAt(0, 5)
	require.Nil(t, rerr)
	require.Equal(t, "world", string(got))
}

func TestSize_ReflectsBufferLength(t *testing.T) {
	buf := make([]byte, 128)
	img, err := imageio.NewFromReadWriteSeeker("mem", bytesextra.NewReadWriteSeeker(buf))
	require.Nil(t, err)

	size, serr := img.Size()
	require.Nil(t, serr)
	require.EqualValues(t, 128, size)
}

func TestOpen_MissingFileFailsImageNotFound(t *testing.T) {
	_, err := imageio.Open("/nonexistent/path/to/image.img")
	require.NotNil(t, err)
	require.ErrorIs(t, err, ferrors.ImageNotFound)
}
