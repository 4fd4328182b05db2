package facade_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mharlan/fat32vol/facade"
	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/testfixture"
	"github.com/mharlan/fat32vol/volume"
)

func mountFixture(t *testing.T, dataClusters uint32) *volume.Volume {
	t.Helper()
	img := testfixture.New(dataClusters)
	v, err := volume.MountStream("fixture.img", img.Stream())
	require.Nil(t, err)
	t.Cleanup(func() { v.Unmount() })
	return v
}

func TestInfo_ReportsFixtureGeometry(t *testing.T) {
	v := mountFixture(t, 8)

	var buf bytes.Buffer
	require.Nil(t, facade.Info(v, &buf))
	require.Contains(t, buf.String(), "root cluster: 2")
	require.Contains(t, buf.String(), "bytes per sector: 512")
}

func TestCreat_ThenLs_ThenDuplicateFails(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Creat(v, "hello.txt"))

	var buf bytes.Buffer
	require.Nil(t, facade.Ls(v, &buf))
	require.Contains(t, buf.String(), "HELLO.TXT")

	err := facade.Creat(v, "hello.txt")
	require.Equal(t, ferrors.AlreadyExists, err)
}

func TestMkdir_ThenCd_ThenCdDotDotReturnsToRoot(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Mkdir(v, "sub"))
	require.Nil(t, facade.Cd(v, "sub"))
	require.Equal(t, "/sub/", v.Path())

	require.Nil(t, facade.Mkdir(v, "nested"))
	require.Nil(t, facade.Cd(v, "nested"))
	require.Equal(t, "/sub/nested/", v.Path())

	require.Nil(t, facade.Cd(v, ".."))
	require.Equal(t, "/sub/", v.Path())
	require.Nil(t, facade.Cd(v, ".."))
	require.Equal(t, "/", v.Path())
	require.Equal(t, v.RootCluster(), v.CurrentCluster())
}

func TestWriteThenRead_RoundTripsThroughLseek(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Creat(v, "data.bin"))
	require.Nil(t, facade.Open(v, "data.bin", "-rw"))
	require.Nil(t, facade.Write(v, "data.bin", "hello world"))

	require.Nil(t, facade.Lseek(v, "data.bin", 0))
	data, rerr := facade.Read(v, "data.bin", 11)
	require.Nil(t, rerr)
	require.Equal(t, "hello world", string(data))

	require.Nil(t, facade.Lseek(v, "data.bin", 6))
	require.Nil(t, facade.Write(v, "data.bin", "THERE"))

	require.Nil(t, facade.Lseek(v, "data.bin", 0))
	data, rerr = facade.Read(v, "data.bin", 11)
	require.Nil(t, rerr)
	require.Equal(t, "hello THERE", string(data))
}

func TestWrite_SpanningMultipleClusters(t *testing.T) {
	v := mountFixture(t, 8)
	clusterBytes := int(v.Geometry().ClusterBytes)

	require.Nil(t, facade.Creat(v, "big.bin"))
	require.Nil(t, facade.Open(v, "big.bin", "-rw"))

	payload := bytes.Repeat([]byte("x"), clusterBytes+10)
	require.Nil(t, facade.Write(v, "big.bin", string(payload)))

	require.Nil(t, facade.Lseek(v, "big.bin", 0))
	data, rerr := facade.Read(v, "big.bin", len(payload))
	require.Nil(t, rerr)
	require.Equal(t, payload, data)
}

func TestRm_TombstonesAndFreesChainForReuse(t *testing.T) {
	v := mountFixture(t, 1)

	require.Nil(t, facade.Creat(v, "only.txt"))
	require.Nil(t, facade.Open(v, "only.txt", "-rw"))
	require.Nil(t, facade.Write(v, "only.txt", "x"))
	require.Nil(t, facade.Close(v, "only.txt"))

	usedCluster, ferr := v.FAT().FindFree()
	require.NotNil(t, ferr) // the single data cluster is in use

	require.Nil(t, facade.Rm(v, "only.txt"))

	freed, ferr2 := v.FAT().FindFree()
	require.Nil(t, ferr2)
	_ = usedCluster
	_ = freed

	var buf bytes.Buffer
	require.Nil(t, facade.Ls(v, &buf))
	require.NotContains(t, buf.String(), "ONLY")
}

func TestRmdir_FailsWhenNotEmptyThenSucceedsWhenEmpty(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Mkdir(v, "sub"))
	require.Nil(t, facade.Cd(v, "sub"))
	require.Nil(t, facade.Creat(v, "leaf.txt"))
	require.Nil(t, facade.Cd(v, ".."))

	err := facade.Rmdir(v, "sub")
	require.Equal(t, ferrors.NotEmpty, err)

	require.Nil(t, facade.Cd(v, "sub"))
	require.Nil(t, facade.Rm(v, "leaf.txt"))
	require.Nil(t, facade.Cd(v, ".."))

	require.Nil(t, facade.Rmdir(v, "sub"))

	var buf bytes.Buffer
	require.Nil(t, facade.Ls(v, &buf))
	require.NotContains(t, buf.String(), "SUB")
}

func TestOpen_SecondOpenFailsAlreadyOpen(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Creat(v, "f.txt"))
	require.Nil(t, facade.Open(v, "f.txt", "-r"))

	err := facade.Open(v, "f.txt", "-r")
	require.Equal(t, ferrors.AlreadyOpen, err)
}

func TestMv_RenameInPlace(t *testing.T) {
	v := mountFixture(t, 8)

	require.Nil(t, facade.Creat(v, "old.txt"))
	require.Nil(t, facade.Mv(v, "old.txt", "new.txt"))

	var buf bytes.Buffer
	require.Nil(t, facade.Ls(v, &buf))
	require.Contains(t, buf.String(), "NEW.TXT")
	require.NotContains(t, buf.String(), "OLD.TXT")
}
