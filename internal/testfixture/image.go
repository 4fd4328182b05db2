// Package testfixture builds small, valid FAT32 images entirely in memory
// for use by package tests. It plays the role the teacher's
// testing.LoadDiskImage did for a fixed compressed fixture, but synthesizes
// the bytes directly since this domain's tests need to control geometry
// (cluster size, data-cluster count) rather than replay a canned image.
package testfixture

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"
)

// Fixed geometry shared by every built image. One sector per cluster keeps
// the arithmetic in tests easy to hand-check.
const (
	BytesPerSector    = 512
	SectorsPerCluster = 1
	ReservedSectors   = 32
	NumFATs           = 2
	RootCluster       = 2
)

// Image is a ready-to-mount FAT32 volume: a valid BPB, NumFATs identical FAT
// copies (clusters 0 and 1 reserved, the root directory's cluster marked
// end-of-chain, everything else free), and a zeroed root directory cluster
// whose "." entry points at the root cluster and whose ".." entry holds 0
// (the root-directory convention).
type Image struct {
	DataClusters uint32 // clusters available for allocation beyond the root
	FATSize32    uint32 // sectors per FAT copy
	Bytes        []byte
}

// New builds an image with dataClusters allocatable clusters in addition to
// the root directory's own cluster.
func New(dataClusters uint32) *Image {
	totalClusters := dataClusters + 1 // + root
	entriesNeeded := totalClusters + 2
	fatBytes := entriesNeeded * 4
	fatSize32 := (fatBytes + BytesPerSector - 1) / BytesPerSector

	dataSectors := totalClusters * SectorsPerCluster
	totalSectors := ReservedSectors + NumFATs*fatSize32 + dataSectors

	buf := make([]byte, totalSectors*BytesPerSector)

	img := &Image{DataClusters: dataClusters, FATSize32: fatSize32, Bytes: buf}
	img.writeBPB(totalSectors)
	img.writeFATs()
	img.writeRootDir()
	return img
}

func (img *Image) writeBPB(totalSectors uint32) {
	w := bytewriter.New(img.Bytes[0:90])

	write := func(v interface{}) { binary.Write(w, binary.LittleEndian, v) }

	write([3]byte{0xEB, 0x58, 0x90})       // JmpBoot
	write([8]byte{'M', 'S', 'W', 'I', 'N', '4', '.', '1'}) // OEMName
	write(uint16(BytesPerSector))
	write(uint8(SectorsPerCluster))
	write(uint16(ReservedSectors))
	write(uint8(NumFATs))
	write(uint16(0)) // RootEntryCount, must be 0 for FAT32
	write(uint16(0)) // TotSec16
	write(uint8(0xF8))
	write(uint16(0)) // FATSz16
	write(uint16(32))
	write(uint16(64))
	write(uint32(0)) // HiddenSectors
	write(uint32(totalSectors))
	write(uint32(img.FATSize32))
	write(uint16(0)) // ExtFlags
	write(uint16(0)) // FSVersion
	write(uint32(RootCluster))
	write(uint16(1))  // FSInfo
	write(uint16(6))  // BkBootSec
	write([12]byte{}) // Reserved12
	write(uint8(0x80))
	write(uint8(0))
	write(uint8(0x29))
	write(uint32(0x12345678))
	write([11]byte{'N', 'O', ' ', 'N', 'A', 'M', 'E', ' ', ' ', ' ', ' '})
	write([8]byte{'F', 'A', 'T', '3', '2', ' ', ' ', ' '})
}

func (img *Image) writeFATs() {
	fatEntry := func(fat []byte, index uint32, value uint32) {
		binary.LittleEndian.PutUint32(fat[index*4:index*4+4], value&0x0FFFFFFF)
	}

	for copyIdx := uint32(0); copyIdx < NumFATs; copyIdx++ {
		start := (ReservedSectors + copyIdx*img.FATSize32) * BytesPerSector
		fat := img.Bytes[start : start+img.FATSize32*BytesPerSector]

		fatEntry(fat, 0, 0x0FFFFFF8)
		fatEntry(fat, 1, 0x0FFFFFFF)
		fatEntry(fat, RootCluster, 0x0FFFFFFF) // root is a single, terminated cluster
	}
}

func (img *Image) writeRootDir() {
	offset := (ReservedSectors + NumFATs*img.FATSize32) * BytesPerSector
	root := img.Bytes[offset : offset+SectorsPerCluster*BytesPerSector]

	dot := root[0:32]
	copy(dot, []byte(".          "))
	dot[11] = 0x10 // AttrDirectory
	binary.LittleEndian.PutUint16(dot[20:22], uint16(RootCluster>>16))
	binary.LittleEndian.PutUint16(dot[26:28], uint16(RootCluster&0xFFFF))

	dotdot := root[32:64]
	copy(dotdot, []byte("..         "))
	dotdot[11] = 0x10
	binary.LittleEndian.PutUint16(dotdot[20:22], 0)
	binary.LittleEndian.PutUint16(dotdot[26:28], 0)
}

// Stream returns an in-memory ReadWriteSeeker over the image bytes, suitable
// for volume.MountStream.
func (img *Image) Stream() io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(img.Bytes)
}
