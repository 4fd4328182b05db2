package facade

import (
	"fmt"
	"io"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/directory"
	"github.com/mharlan/fat32vol/internal/fat"
	"github.com/mharlan/fat32vol/internal/shortname"
	"github.com/mharlan/fat32vol/volume"
)

// Creat creates an empty file entry in the current directory. No FAT cluster
// is allocated until the first write.
func Creat(v *volume.Volume, name string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}

	if result, _ := dir.Find(normalized); result.Present {
		return ferrors.AlreadyExists
	}

	cluster, idx, err := dir.AllocateSlot()
	if err != nil {
		return err
	}

	cluster.SetEntry(idx, directory.Entry{Name: normalized, Attr: directory.AttrArchive})
	return cluster.WriteBack()
}

func parseOpenMode(flags string) (volume.Mode, ferrors.FatError) {
	switch flags {
	case "-r":
		return volume.ModeRead, nil
	case "-w":
		return volume.ModeWrite, nil
	case "-rw", "-wr":
		return volume.ModeReadWrite, nil
	default:
		return 0, ferrors.BadMode.WithMessage(fmt.Sprintf("unrecognized open flag %q", flags))
	}
}

// Open opens name from the current directory for reading, writing, or both.
func Open(v *volume.Volume, name string, flags string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	mode, merr := parseOpenMode(flags)
	if merr != nil {
		return merr
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}

	result, _ := dir.Find(normalized)
	if !result.Present {
		return ferrors.NotFound
	}
	if result.Entry.IsDir() {
		return ferrors.IsADirectory
	}
	if v.IsOpen(normalized) {
		return ferrors.AlreadyOpen
	}

	rowIdx, rerr := v.AllocateOpenRow()
	if rerr != nil {
		return rerr
	}

	*v.OpenRow(rowIdx) = volume.OpenFile{
		InUse:        true,
		Name:         normalized,
		FirstCluster: result.Entry.FirstCluster(),
		Offset:       0,
		Mode:         mode,
		Path:         v.Path(),
	}
	return nil
}

// Close closes an open file, returning its row to the Free state.
func Close(v *volume.Volume, name string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	idx := v.FindOpenByName(normalized)
	if idx < 0 {
		return ferrors.NotOpen
	}
	v.CloseRow(idx)
	return nil
}

// Lsof prints every in-use open-file row: index, name, cluster, mode,
// offset, and the path captured at open time.
func Lsof(v *volume.Volume, w io.Writer) ferrors.FatError {
	for _, row := range v.ForEachOpen() {
		fmt.Fprintf(
			w,
			"%d %s cluster=%d mode=%d offset=%d path=%s\n",
			row.Index, shortname.Trim(row.Name), row.FirstCluster, row.Mode, row.Offset, row.Path,
		)
	}
	return nil
}

// Lseek repositions an open file's cursor. There is no bounds check against
// the file's size; a subsequent write at an out-of-file offset extends the
// chain, per spec.md section 4.6.
func Lseek(v *volume.Volume, name string, offset uint32) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	idx := v.FindOpenByName(normalized)
	if idx < 0 {
		return ferrors.NotOpen
	}
	v.OpenRow(idx).Offset = offset
	return nil
}

// walkToCluster advances count cluster-links forward from first, extending
// the chain with freshly allocated clusters whenever it would otherwise run
// off the end.
func walkToCluster(table *fat.Table, first uint32, count uint32) (uint32, ferrors.FatError) {
	current := first
	for i := uint32(0); i < count; i++ {
		next, err := table.Get(current)
		if err != nil {
			return 0, err
		}
		if next == 0 || fat.IsEndOfChain(next) {
			next, err = table.Extend(current)
			if err != nil {
				return 0, err
			}
		}
		current = next
	}
	return current, nil
}

// Write writes str to name starting at its open-row offset, extending the
// file's cluster chain as needed, and updates fileSize in the directory
// entry when the write grows the file.
func Write(v *volume.Volume, name string, str string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	idx := v.FindOpenByName(normalized)
	if idx < 0 {
		return ferrors.NotOpen
	}
	row := v.OpenRow(idx)
	if !row.Mode.CanWrite() {
		return ferrors.BadMode.WithMessage("file not open for writing")
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}
	result, cluster := dir.Find(normalized)
	if !result.Present {
		return ferrors.NotFound
	}
	entry := result.Entry

	geo := v.Geometry()
	table := v.FAT()
	off := row.Offset
	data := []byte(str)

	firstCluster := entry.FirstCluster()
	if firstCluster == 0 {
		firstCluster, err = table.Allocate()
		if err != nil {
			return err
		}
		entry.SetFirstCluster(firstCluster)
		row.FirstCluster = firstCluster
	}

	clusterBytes := geo.ClusterBytes
	targetClusterIndex := off / clusterBytes
	targetCluster, werr := walkToCluster(table, firstCluster, targetClusterIndex)
	if werr != nil {
		return werr
	}

	pos := off % clusterBytes
	cur := targetCluster
	written := uint32(0)
	total := uint32(len(data))

	for written < total {
		space := clusterBytes - pos
		chunk := space
		if total-written < chunk {
			chunk = total - written
		}

		byteOffset := geo.ClusterToByteOffset(cur) + int64(pos)
		if werr = v.Image().WriteAt(byteOffset, data[written:written+chunk]); werr != nil {
			return werr
		}

		written += chunk
		pos = 0

		if written < total {
			next, gerr := table.Get(cur)
			if gerr != nil {
				return gerr
			}
			if next == 0 || fat.IsEndOfChain(next) {
				next, gerr = table.Extend(cur)
				if gerr != nil {
					return gerr
				}
			}
			cur = next
		}
	}

	newOffset := off + total
	row.Offset = newOffset
	if newOffset > entry.FileSize {
		entry.FileSize = newOffset
	}

	cluster.SetEntry(result.Index, entry)
	return cluster.WriteBack()
}

// Read reads up to n bytes from name starting at its open-row offset,
// stopping early at end-of-file, and advances the offset by the number of
// bytes actually read. This supplements spec.md's scaffolded-but-undefined
// read command, mirroring Write's contract.
func Read(v *volume.Volume, name string, n int) ([]byte, ferrors.FatError) {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nil, nerr
	}

	idx := v.FindOpenByName(normalized)
	if idx < 0 {
		return nil, ferrors.NotOpen
	}
	row := v.OpenRow(idx)
	if !row.Mode.CanRead() {
		return nil, ferrors.BadMode.WithMessage("file not open for reading")
	}

	dir, err := currentDir(v)
	if err != nil {
		return nil, err
	}
	result, _ := dir.Find(normalized)
	if !result.Present {
		return nil, ferrors.NotFound
	}
	entry := result.Entry

	if row.Offset >= entry.FileSize || entry.FirstCluster() == 0 {
		return []byte{}, nil
	}

	remaining := entry.FileSize - row.Offset
	toRead := uint32(n)
	if remaining < toRead {
		toRead = remaining
	}

	geo := v.Geometry()
	table := v.FAT()
	clusterBytes := geo.ClusterBytes

	targetClusterIndex := row.Offset / clusterBytes
	cur := entry.FirstCluster()
	for i := uint32(0); i < targetClusterIndex; i++ {
		next, gerr := table.Get(cur)
		if gerr != nil {
			return nil, gerr
		}
		if next == 0 || fat.IsEndOfChain(next) {
			return nil, ferrors.Corrupt.WithMessage("chain shorter than recorded file size")
		}
		cur = next
	}

	pos := row.Offset % clusterBytes
	out := make([]byte, 0, toRead)
	read := uint32(0)

	for read < toRead {
		space := clusterBytes - pos
		chunk := space
		if toRead-read < chunk {
			chunk = toRead - read
		}

		byteOffset := geo.ClusterToByteOffset(cur) + int64(pos)
		buf, rerr := v.Image().ReadAt(byteOffset, int(chunk))
		if rerr != nil {
			return nil, rerr
		}
		out = append(out, buf...)
		read += chunk
		pos = 0

		if read < toRead {
			next, gerr := table.Get(cur)
			if gerr != nil {
				return nil, gerr
			}
			if next == 0 || fat.IsEndOfChain(next) {
				break
			}
			cur = next
		}
	}

	row.Offset += read
	return out, nil
}

// Rm removes a file entry and frees its cluster chain. Directories must be
// removed with Rmdir instead.
func Rm(v *volume.Volume, name string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}
	if v.IsOpen(normalized) {
		return ferrors.InUse
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}
	result, cluster := dir.Find(normalized)
	if !result.Present {
		return ferrors.NotFound
	}
	if result.Entry.IsDir() {
		return ferrors.IsADirectory
	}

	if first := result.Entry.FirstCluster(); first != 0 {
		if ferr := v.FAT().FreeChain(first); ferr != nil {
			return ferr
		}
	}

	if terr := cluster.Tombstone(result.Index); terr != nil {
		return terr
	}
	return cluster.WriteBack()
}

// Mv moves src into dst if dst names a directory in the current directory,
// and renames src to dst in place if dst does not exist. If dst exists and is
// not a directory, it fails with ferrors.AlreadyExists.
func Mv(v *volume.Volume, src string, dst string) ferrors.FatError {
	srcNorm, serr := shortname.Normalize(src)
	if serr != nil {
		return serr
	}
	dstNorm, derr := shortname.Normalize(dst)
	if derr != nil {
		return derr
	}
	if v.IsOpen(srcNorm) {
		return ferrors.InUse
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}
	srcResult, srcCluster := dir.Find(srcNorm)
	if !srcResult.Present {
		return ferrors.NotFound
	}

	dstResult, _ := dir.Find(dstNorm)
	if dstResult.Present {
		if !dstResult.Entry.IsDir() {
			return ferrors.AlreadyExists
		}

		targetDir, terr := directory.OpenChain(v.Geometry(), v.Image(), v.FAT(), dstResult.Entry.FirstCluster())
		if terr != nil {
			return terr
		}
		if collision, _ := targetDir.Find(srcNorm); collision.Present {
			return ferrors.AlreadyExists
		}

		newCluster, newIdx, aerr := targetDir.AllocateSlot()
		if aerr != nil {
			return aerr
		}
		newCluster.SetEntry(newIdx, srcResult.Entry)
		if werr := newCluster.WriteBack(); werr != nil {
			return werr
		}

		if terr := srcCluster.Tombstone(srcResult.Index); terr != nil {
			return terr
		}
		return srcCluster.WriteBack()
	}

	renamed := srcResult.Entry
	renamed.Name = dstNorm
	srcCluster.SetEntry(srcResult.Index, renamed)
	return srcCluster.WriteBack()
}
