// Package geometry parses the BIOS Parameter Block of a FAT32 image and
// derives the addressing constants the rest of the engine needs: bytes per
// sector, sectors per cluster, the FAT's byte offset, the first data sector,
// and the cluster-to-byte-offset mapping.
package geometry

import (
	"encoding/binary"
	"fmt"
	"io"
	"syscall"

	"github.com/mharlan/fat32vol/ferrors"
)

// RawBPB is the on-disk layout of the first 90 bytes of a FAT32 volume: the
// common BPB fields shared with FAT12/16, followed by the FAT32 extension.
// Field names follow Microsoft's FAT documentation.
type RawBPB struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotSec16          uint16
	Media             uint8
	FATSz16           uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotSec32          uint32
	FATSz32           uint32
	ExtFlags          uint16
	FSVersion         uint16
	RootCluster       uint32
	FSInfo            uint16
	BkBootSec         uint16
	Reserved12        [12]byte
	DriveNumber       uint8
	NTReserved        uint8
	BootSignature     uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FileSystemType    [8]byte
}

// Geometry holds the addressing constants derived from a RawBPB. Every field
// is immutable for the lifetime of a mount.
type Geometry struct {
	BytesPerSector    uint32
	SectorsPerCluster uint32
	ReservedSectors   uint32
	NumFATs           uint32
	FATSize32         uint32
	RootCluster       uint32
	TotalSectors      uint32

	ClusterBytes      uint32
	FATStartOffset    int64
	FirstDataSector   uint32
	EntriesPerFAT     uint32
	TotalDataClusters uint32
	DirentsPerCluster uint32
}

const direntSize = 32

// Parse reads the first 90 bytes of r (a freshly opened image) and returns
// the derived Geometry. It fails with ferrors.Corrupt if BytesPerSector or
// SectorsPerCluster hold values the FAT32 standard forbids, the same
// validation the teacher's NewFATBootSectorFromStream performs.
func Parse(r io.Reader) (*Geometry, ferrors.FatError) {
	var raw RawBPB
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, ferrors.NewErrno(syscall.EIO, err.Error())
	}

	switch raw.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return nil, ferrors.Corrupt.WithMessage(
			fmt.Sprintf("bad BytesPerSector %d: must be 512, 1024, 2048, or 4096", raw.BytesPerSector))
	}

	switch raw.SectorsPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		return nil, ferrors.Corrupt.WithMessage(
			fmt.Sprintf("bad SectorsPerCluster %d: must be a power of 2 in [1, 128]", raw.SectorsPerCluster))
	}

	if raw.NumFATs == 0 {
		return nil, ferrors.Corrupt.WithMessage("NumFATs is 0")
	}

	if raw.RootEntryCount != 0 {
		return nil, ferrors.Corrupt.WithMessage("RootEntryCount must be 0 on FAT32")
	}

	totalSectors := raw.TotSec32
	if totalSectors == 0 {
		totalSectors = uint32(raw.TotSec16)
	}

	bytesPerSector := uint32(raw.BytesPerSector)
	sectorsPerCluster := uint32(raw.SectorsPerCluster)
	numFATs := uint32(raw.NumFATs)
	reservedSectors := uint32(raw.ReservedSectors)

	totalFATSectors := numFATs * raw.FATSz32
	firstDataSector := reservedSectors + totalFATSectors
	dataSectors := totalSectors - firstDataSector
	totalDataClusters := dataSectors / sectorsPerCluster
	clusterBytes := bytesPerSector * sectorsPerCluster

	if clusterBytes > 32768 {
		return nil, ferrors.Corrupt.WithMessage(
			fmt.Sprintf("cluster size %d exceeds the 32768-byte maximum", clusterBytes))
	}

	g := &Geometry{
		BytesPerSector:    bytesPerSector,
		SectorsPerCluster: sectorsPerCluster,
		ReservedSectors:   reservedSectors,
		NumFATs:           numFATs,
		FATSize32:         raw.FATSz32,
		RootCluster:       raw.RootCluster,
		TotalSectors:      totalSectors,
		ClusterBytes:      clusterBytes,
		FATStartOffset:    int64(reservedSectors) * int64(bytesPerSector),
		FirstDataSector:   firstDataSector,
		EntriesPerFAT:     (raw.FATSz32 * bytesPerSector) / 4,
		TotalDataClusters: totalDataClusters,
		DirentsPerCluster: clusterBytes / direntSize,
	}
	return g, nil
}

// ClusterToByteOffset converts a cluster number (>= 2) into an absolute byte
// offset into the image file.
func (g *Geometry) ClusterToByteOffset(cluster uint32) int64 {
	sector := int64(g.FirstDataSector) + int64(cluster-2)*int64(g.SectorsPerCluster)
	return sector * int64(g.BytesPerSector)
}

// FATCopyOffset returns the byte offset of the start of FAT copy `index`
// (0-based).
func (g *Geometry) FATCopyOffset(index uint32) int64 {
	return g.FATStartOffset + int64(index)*int64(g.FATSize32)*int64(g.BytesPerSector)
}
