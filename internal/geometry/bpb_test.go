package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mharlan/fat32vol/internal/geometry"
	"github.com/mharlan/fat32vol/internal/imageio"
	"github.com/mharlan/fat32vol/internal/testfixture"
)

func TestParse_DerivesGeometryFromFixture(t *testing.T) {
	img := testfixture.New(10)

	iio, err := imageio.NewFromReadWriteSeeker("fixture", img.Stream())
	require.Nil(t, err)

	bpbBytes, err := iio.ReadAt(0, 90)
	require.Nil(t, err)

	geo, gerr := geometry.Parse(bytesReader{bpbBytes})
	require.Nil(t, gerr)

	require.Equal(t, uint32(testfixture.BytesPerSector), geo.BytesPerSector)
	require.Equal(t, uint32(testfixture.SectorsPerCluster), geo.SectorsPerCluster)
	require.Equal(t, uint32(testfixture.NumFATs), geo.NumFATs)
	require.Equal(t, uint32(testfixture.RootCluster), geo.RootCluster)
	require.Equal(t, uint32(11), geo.TotalDataClusters) // 10 data + 1 root
}

func TestParse_RejectsNonzeroRootEntryCount(t *testing.T) {
	img := testfixture.New(4)
	// RootEntryCount lives at byte offset 17-18 in the BPB.
	img.Bytes[17] = 1

	_, gerr := geometry.Parse(bytesReader{img.Bytes[0:90]})
	require.NotNil(t, gerr)
}

type bytesReader struct{ data []byte }

func (r bytesReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	return n, nil
}
