// Package volume owns the process-wide mounted state spec.md's design notes
// ask to package explicitly instead of as module-level globals: the image
// handle, geometry, FAT table, current-directory cluster, current path, and
// the open-file table. Exactly one Volume is active per mount.
package volume

import (
	"io"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/fat"
	"github.com/mharlan/fat32vol/internal/geometry"
	"github.com/mharlan/fat32vol/internal/imageio"
)

// MaxOpenFiles is the fixed capacity of the open-file table (spec.md section
// 3: "Capacity fixed at 10").
const MaxOpenFiles = 10

// Mode is the access mode a file was opened with.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeReadWrite
)

// CanRead reports whether this mode permits reads.
func (m Mode) CanRead() bool { return m == ModeRead || m == ModeReadWrite }

// CanWrite reports whether this mode permits writes.
func (m Mode) CanWrite() bool { return m == ModeWrite || m == ModeReadWrite }

// OpenFile is one row of the open-file table: an in-memory handle to a file
// being read or written, matching spec.md's Open File entity exactly.
type OpenFile struct {
	InUse        bool
	Name         [11]byte
	FirstCluster uint32
	Offset       uint32
	Mode         Mode
	Path         string
}

// Volume is the mounted FAT32 image and all state that must stay in lockstep
// while it is mounted.
type Volume struct {
	image *imageio.Image
	geo   *geometry.Geometry
	fatTable *fat.Table

	currentCluster uint32
	path           pathStack

	openFiles [MaxOpenFiles]OpenFile
}

// Mount opens path, parses its BPB, and loads the FAT. The returned Volume's
// current directory is the root.
func Mount(path string) (*Volume, ferrors.FatError) {
	image, err := imageio.Open(path)
	if err != nil {
		return nil, err
	}
	return mountImage(image)
}

// MountStream mounts an already-open stream (typically an in-memory image
// used by tests) instead of opening a path from disk.
func MountStream(path string, stream io.ReadWriteSeeker) (*Volume, ferrors.FatError) {
	image, err := imageio.NewFromReadWriteSeeker(path, stream)
	if err != nil {
		return nil, err
	}
	return mountImage(image)
}

func mountImage(image *imageio.Image) (*Volume, ferrors.FatError) {
	bpbBytes, err := image.ReadAt(0, 90)
	if err != nil {
		image.Close()
		return nil, err
	}

	geo, gerr := geometry.Parse(byteReader{bpbBytes})
	if gerr != nil {
		image.Close()
		return nil, gerr
	}

	table, terr := fat.Open(geo, image)
	if terr != nil {
		image.Close()
		return nil, terr
	}

	return &Volume{
		image:          image,
		geo:            geo,
		fatTable:       table,
		currentCluster: geo.RootCluster,
		path:           newPathStack(),
	}, nil
}

// byteReader adapts a byte slice into an io.Reader for geometry.Parse.
type byteReader struct{ data []byte }

func (r byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	return n, nil
}

// Unmount closes the underlying image. It is idempotent and always
// succeeds, per spec.md section 7.
func (v *Volume) Unmount() error {
	if v.image == nil {
		return nil
	}
	err := v.image.Close()
	v.image = nil
	return err
}

// Geometry exposes the volume's derived BPB constants.
func (v *Volume) Geometry() *geometry.Geometry { return v.geo }

// FAT exposes the volume's cluster-chain engine.
func (v *Volume) FAT() *fat.Table { return v.fatTable }

// Image exposes the volume's positional image handle.
func (v *Volume) Image() *imageio.Image { return v.image }

// CurrentCluster returns the cluster number of the current directory.
func (v *Volume) CurrentCluster() uint32 { return v.currentCluster }

// SetCurrentCluster moves the current directory pointer. Callers are
// responsible for keeping the path string in lockstep (see Path/PushDir/PopDir).
func (v *Volume) SetCurrentCluster(cluster uint32) { v.currentCluster = cluster }

// RootCluster returns the volume's root directory cluster.
func (v *Volume) RootCluster() uint32 { return v.geo.RootCluster }

// Path returns the current path string, beginning and (below the root)
// ending with '/'.
func (v *Volume) Path() string { return v.path.String() }

// PushDir appends a path component when moving into a child directory.
func (v *Volume) PushDir(name string) { v.path.Push(name) }

// PopDir removes the last path component when moving to the parent
// directory. It is a no-op at the root.
func (v *Volume) PopDir() { v.path.Pop() }

// VolumeInfo is the set of geometry/size facts the `info` command reports.
type VolumeInfo struct {
	RootCluster       uint32
	BytesPerSector    uint32
	SectorsPerCluster uint32
	TotalDataClusters uint32
	EntriesPerFAT     uint32
	ImageSizeBytes    int64
}

// Info reports the geometry and size facts spec.md section 4.2 names.
func (v *Volume) Info() (VolumeInfo, ferrors.FatError) {
	size, err := v.image.Size()
	if err != nil {
		return VolumeInfo{}, err
	}
	return VolumeInfo{
		RootCluster:       v.geo.RootCluster,
		BytesPerSector:    v.geo.BytesPerSector,
		SectorsPerCluster: v.geo.SectorsPerCluster,
		TotalDataClusters: v.geo.TotalDataClusters,
		EntriesPerFAT:     v.geo.EntriesPerFAT,
		ImageSizeBytes:    size,
	}, nil
}

// Fsck runs a read-only consistency scan across every FAT copy, reporting
// every mismatch it finds rather than stopping at the first. It supplements
// spec.md's invariant that all FAT copies agree (section 3) with a way to
// actually check it.
func (v *Volume) Fsck() error {
	return v.fatTable.VerifyCopies()
}
