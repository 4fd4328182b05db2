package fat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/fat"
	"github.com/mharlan/fat32vol/internal/geometry"
	"github.com/mharlan/fat32vol/internal/imageio"
	"github.com/mharlan/fat32vol/internal/testfixture"
)

func openTestTable(t *testing.T, dataClusters uint32) (*fat.Table, *geometry.Geometry) {
	t.Helper()
	img := testfixture.New(dataClusters)

	iio, err := imageio.NewFromReadWriteSeeker("fixture", img.Stream())
	require.Nil(t, err)

	bpbBytes, err := iio.ReadAt(0, 90)
	require.Nil(t, err)

	geo, gerr := geometry.Parse(bytesReaderFAT{bpbBytes})
	require.Nil(t, gerr)

	table, terr := fat.Open(geo, iio)
	require.Nil(t, terr)

	return table, geo
}

type bytesReaderFAT struct{ data []byte }

func (r bytesReaderFAT) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	return n, nil
}

func TestAllocate_ReturnsFreeClusterAndMarksEndOfChain(t *testing.T) {
	table, _ := openTestTable(t, 4)

	cluster, err := table.Allocate()
	require.Nil(t, err)
	require.GreaterOrEqual(t, cluster, uint32(3)) // 2 is the root, already in use

	v, gerr := table.Get(cluster)
	require.Nil(t, gerr)
	require.True(t, fat.IsEndOfChain(v))
}

func TestFreeChain_ThenFindFree_ReusesTheSameCluster(t *testing.T) {
	table, _ := openTestTable(t, 4)

	cluster, err := table.Allocate()
	require.Nil(t, err)

	require.Nil(t, table.FreeChain(cluster))

	again, err := table.FindFree()
	require.Nil(t, err)
	require.Equal(t, cluster, again)
}

func TestExtend_LinksNewClusterAfterTail(t *testing.T) {
	table, _ := openTestTable(t, 4)

	head, err := table.Allocate()
	require.Nil(t, err)

	next, err := table.Extend(head)
	require.Nil(t, err)
	require.NotEqual(t, head, next)

	linked, gerr := table.Get(head)
	require.Nil(t, gerr)
	require.Equal(t, next, linked)

	tail, gerr := table.Get(next)
	require.Nil(t, gerr)
	require.True(t, fat.IsEndOfChain(tail))
}

func TestIterate_WalksWholeChainInOrder(t *testing.T) {
	table, _ := openTestTable(t, 4)

	head, err := table.Allocate()
	require.Nil(t, err)
	second, err := table.Extend(head)
	require.Nil(t, err)
	third, err := table.Extend(second)
	require.Nil(t, err)

	chain, ierr := table.Iterate(head)
	require.Nil(t, ierr)
	require.Equal(t, []uint32{head, second, third}, chain)
}

func TestFindFree_FailsWhenDiskFull(t *testing.T) {
	table, _ := openTestTable(t, 1)

	_, err := table.Allocate()
	require.Nil(t, err)

	_, err = table.FindFree()
	require.NotNil(t, err)
	require.Equal(t, ferrors.FullDisk, err)
}

func TestVerifyCopies_AgreesAfterNormalAllocation(t *testing.T) {
	table, _ := openTestTable(t, 4)

	_, err := table.Allocate()
	require.Nil(t, err)

	require.NoError(t, table.VerifyCopies())
}
