// Package fat implements the cluster-chain engine: reading and writing FAT
// entries across every FAT copy, finding free clusters, allocating and
// freeing chains, and verifying that all FAT copies agree.
package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/geometry"
	"github.com/mharlan/fat32vol/internal/imageio"
)

// EOC is the canonical end-of-chain value written by this engine. Any value
// >= EOCThreshold read back from disk is also treated as end-of-chain.
const EOC uint32 = 0x0FFFFFFF

// EOCThreshold is the lowest FAT entry value considered end-of-chain.
const EOCThreshold uint32 = 0x0FFFFFF8

// BadCluster marks a cluster the engine will never allocate, but treats as
// non-free.
const BadCluster uint32 = 0x0FFFFFF7

// reservedBitsMask keeps only the low 28 bits of a FAT32 entry significant.
const reservedBitsMask uint32 = 0x0FFFFFFF

// IsEndOfChain reports whether a masked FAT entry value marks chain
// termination.
func IsEndOfChain(v uint32) bool { return v >= EOCThreshold }

// IsFree reports whether a masked FAT entry value marks a free cluster.
func IsFree(v uint32) bool { return v == 0 }

// Table is the cluster-allocation map: a FAT32 volume's File Allocation
// Table, replicated across geometry.NumFATs identical copies on disk.
type Table struct {
	geo   *geometry.Geometry
	image *imageio.Image
	// free mirrors which clusters are allocated, letting FindFree skip
	// clusters it already knows are in use instead of re-reading them from
	// the image every time. It is kept in lockstep with every Set call.
	free bitmap.Bitmap
}

// Open loads a Table over an already-mounted image and builds the free-
// cluster bitmap by scanning FAT copy 0 once.
func Open(geo *geometry.Geometry, image *imageio.Image) (*Table, ferrors.FatError) {
	t := &Table{
		geo:   geo,
		image: image,
		free:  bitmap.New(int(geo.EntriesPerFAT)),
	}

	for i := uint32(0); i < geo.EntriesPerFAT; i++ {
		v, err := t.readEntry(0, i)
		if err != nil {
			return nil, err
		}
		if !IsFree(v) {
			t.free.Set(int(i), true)
		}
	}
	return t, nil
}

func (t *Table) entryOffset(fatIndex uint32, clusterIndex uint32) int64 {
	return t.geo.FATCopyOffset(fatIndex) + int64(clusterIndex)*4
}

func (t *Table) readEntry(fatIndex uint32, clusterIndex uint32) (uint32, ferrors.FatError) {
	raw, err := t.image.ReadAt(t.entryOffset(fatIndex, clusterIndex), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw) & reservedBitsMask, nil
}

// Get reads a FAT entry from FAT copy 0.
func (t *Table) Get(clusterIndex uint32) (uint32, ferrors.FatError) {
	if clusterIndex >= t.geo.EntriesPerFAT {
		return 0, ferrors.BadArgs.WithMessage(
			fmt.Sprintf("cluster %d out of range [0, %d)", clusterIndex, t.geo.EntriesPerFAT))
	}
	return t.readEntry(0, clusterIndex)
}

// Set writes value into entry clusterIndex of every FAT copy, FAT 0 first,
// completing all writes before returning success. The upper 4 reserved bits
// are written as zero; whatever they held before is not preserved.
func (t *Table) Set(clusterIndex uint32, value uint32) ferrors.FatError {
	if clusterIndex >= t.geo.EntriesPerFAT {
		return ferrors.BadArgs.WithMessage(
			fmt.Sprintf("cluster %d out of range [0, %d)", clusterIndex, t.geo.EntriesPerFAT))
	}

	buf := make([]byte, 4)
	w := bytewriter.New(buf)
	if err := binary.Write(w, binary.LittleEndian, value&reservedBitsMask); err != nil {
		return ferrors.ImageIOError.WrapError(err)
	}

	for fatIndex := uint32(0); fatIndex < t.geo.NumFATs; fatIndex++ {
		if err := t.image.WriteAt(t.entryOffset(fatIndex, clusterIndex), buf); err != nil {
			return err
		}
	}

	t.free.Set(int(clusterIndex), !IsFree(value))
	return nil
}

// FindFree returns the first free cluster at index >= 2, or ferrors.FullDisk
// if none exists. The scan stops at the last cluster with a real data
// region on disk, not at EntriesPerFAT: a FAT's size is rounded up to whole
// sectors, so it routinely has more entries than the volume has clusters.
func (t *Table) FindFree() (uint32, ferrors.FatError) {
	limit := t.geo.TotalDataClusters + 2
	if limit > t.geo.EntriesPerFAT {
		limit = t.geo.EntriesPerFAT
	}
	for i := uint32(2); i < limit; i++ {
		if !t.free.Get(int(i)) {
			return i, nil
		}
	}
	return 0, ferrors.FullDisk
}

// Allocate finds a free cluster and marks it as a one-cluster chain (end of
// chain), returning its number.
func (t *Table) Allocate() (uint32, ferrors.FatError) {
	cluster, err := t.FindFree()
	if err != nil {
		return 0, err
	}
	if err := t.Set(cluster, EOC); err != nil {
		return 0, err
	}
	return cluster, nil
}

// FreeChain walks the chain starting at head, zeroing every entry, stopping
// at the first free or end-of-chain entry it reads.
func (t *Table) FreeChain(head uint32) ferrors.FatError {
	if head == 0 {
		return nil
	}

	current := head
	seen := make(map[uint32]bool)
	for {
		if seen[current] {
			return ferrors.Corrupt.WithMessage(fmt.Sprintf("cycle detected in chain at cluster %d", current))
		}
		seen[current] = true

		next, err := t.Get(current)
		if err != nil {
			return err
		}
		if err := t.Set(current, 0); err != nil {
			return err
		}
		if next == 0 || IsEndOfChain(next) {
			return nil
		}
		current = next
	}
}

// Extend allocates a new cluster and links it after tail, returning the new
// cluster number.
func (t *Table) Extend(tail uint32) (uint32, ferrors.FatError) {
	newCluster, err := t.Allocate()
	if err != nil {
		return 0, err
	}
	if err := t.Set(tail, newCluster); err != nil {
		return 0, err
	}
	return newCluster, nil
}

// Iterate returns every cluster number in the chain starting at head, in
// order, not including the end-of-chain sentinel itself.
func (t *Table) Iterate(head uint32) ([]uint32, ferrors.FatError) {
	if head == 0 {
		return nil, nil
	}

	chain := []uint32{head}
	current := head
	seen := map[uint32]bool{head: true}

	for {
		next, err := t.Get(current)
		if err != nil {
			return nil, err
		}
		if next == 0 || IsEndOfChain(next) {
			return chain, nil
		}
		if seen[next] {
			return chain, ferrors.Corrupt.WithMessage(fmt.Sprintf("cycle detected in chain at cluster %d", next))
		}
		seen[next] = true
		chain = append(chain, next)
		current = next
	}
}

// VerifyCopies reads every FAT copy back from disk and compares it against
// FAT 0, accumulating every mismatching entry instead of stopping at the
// first. Only the low 28 bits of each entry are compared; differences in the
// reserved upper 4 bits are not reported. It returns nil if every copy
// agrees with FAT 0.
func (t *Table) VerifyCopies() error {
	var result *multierror.Error

	for i := uint32(0); i < t.geo.EntriesPerFAT; i++ {
		reference, err := t.readEntry(0, i)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		for fatIndex := uint32(1); fatIndex < t.geo.NumFATs; fatIndex++ {
			other, err := t.readEntry(fatIndex, i)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			if other != reference {
				result = multierror.Append(result, fmt.Errorf(
					"FAT copy %d entry %d is 0x%x, FAT copy 0 has 0x%x", fatIndex, i, other, reference))
			}
		}
	}

	return result.ErrorOrNil()
}
