package volume_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/testfixture"
	"github.com/mharlan/fat32vol/volume"
)

func TestMountStream_StartsAtRootWithEmptyPath(t *testing.T) {
	img := testfixture.New(4)
	v, err := volume.MountStream("fixture.img", img.Stream())
	require.Nil(t, err)
	defer v.Unmount()

	require.Equal(t, v.RootCluster(), v.CurrentCluster())
	require.Equal(t, "/", v.Path())
}

func TestFsck_PassesOnAFreshlyBuiltImage(t *testing.T) {
	img := testfixture.New(4)
	v, err := volume.MountStream("fixture.img", img.Stream())
	require.Nil(t, err)
	defer v.Unmount()

	require.NoError(t, v.Fsck())
}

func TestOpenFileTable_EnforcesFixedCapacity(t *testing.T) {
	img := testfixture.New(4)
	v, err := volume.MountStream("fixture.img", img.Stream())
	require.Nil(t, err)
	defer v.Unmount()

	for i := 0; i < volume.MaxOpenFiles; i++ {
		idx, aerr := v.AllocateOpenRow()
		require.Nil(t, aerr)
		*v.OpenRow(idx) = volume.OpenFile{InUse: true, Path: fmt.Sprintf("/row%d", i)}
	}

	_, aerr := v.AllocateOpenRow()
	require.Equal(t, ferrors.TooManyOpen, aerr)
}

func TestUnmount_IsIdempotent(t *testing.T) {
	img := testfixture.New(4)
	v, err := volume.MountStream("fixture.img", img.Stream())
	require.Nil(t, err)

	require.NoError(t, v.Unmount())
	require.NoError(t, v.Unmount())
}
