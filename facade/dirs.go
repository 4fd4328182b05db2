package facade

import (
	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/directory"
	"github.com/mharlan/fat32vol/internal/shortname"
	"github.com/mharlan/fat32vol/volume"
)

// Mkdir allocates a new cluster, writes its "." and ".." entries, and adds
// an entry for it in the current directory. Ordering follows spec.md
// section 5: FAT allocation, then the parent slot, then the child cluster.
func Mkdir(v *volume.Volume, name string) ferrors.FatError {
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

	newClusterNum, err := v.FAT().Allocate()
	if err != nil {
		return err
	}

	parentCluster, idx, err := dir.AllocateSlot()
	if err != nil {
		return err
	}

	entry := directory.Entry{Name: normalized, Attr: directory.AttrDirectory}
	entry.SetFirstCluster(newClusterNum)
	parentCluster.SetEntry(idx, entry)
	if err := parentCluster.WriteBack(); err != nil {
		return err
	}

	childCluster, err := directory.Read(v.Geometry(), v.Image(), newClusterNum)
	if err != nil {
		return err
	}

	dotdotTarget := uint32(0)
	if v.CurrentCluster() != v.RootCluster() {
		dotdotTarget = v.CurrentCluster()
	}
	childCluster.InitChild(newClusterNum, dotdotTarget)
	return childCluster.WriteBack()
}

// Rmdir removes an empty subdirectory of the current directory. It fails
// with ferrors.NotEmpty if anything beyond "." and ".." is present, and
// ferrors.InUse if any open file was opened from inside it.
func Rmdir(v *volume.Volume, name string) ferrors.FatError {
	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}
	result, parentCluster := dir.Find(normalized)
	if !result.Present {
		return ferrors.NotFound
	}
	if !result.Entry.IsDir() {
		return ferrors.NotADirectory
	}

	childChain, err := directory.OpenChain(v.Geometry(), v.Image(), v.FAT(), result.Entry.FirstCluster())
	if err != nil {
		return err
	}
	if len(childChain.Entries()) > 2 {
		return ferrors.NotEmpty
	}

	targetPath := v.Path() + name + "/"
	if v.IsPathOpen(targetPath) {
		return ferrors.InUse
	}

	if first := result.Entry.FirstCluster(); first != 0 {
		if ferr := v.FAT().FreeChain(first); ferr != nil {
			return ferr
		}
	}

	if terr := parentCluster.Tombstone(result.Index); terr != nil {
		return terr
	}
	return parentCluster.WriteBack()
}
