// Package facade implements the thin command procedures the REPL invokes,
// one per spec.md section 4.6 shell command. Each composes the geometry,
// directory, FAT, and volume packages; none of them parse REPL syntax.
package facade

import (
	"fmt"
	"io"

	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/directory"
	"github.com/mharlan/fat32vol/internal/shortname"
	"github.com/mharlan/fat32vol/volume"
)

func currentDir(v *volume.Volume) (*directory.Chain, ferrors.FatError) {
	return directory.OpenChain(v.Geometry(), v.Image(), v.FAT(), v.CurrentCluster())
}

// Info prints the volume's geometry and size to w, per spec.md's `info`
// contract.
func Info(v *volume.Volume, w io.Writer) ferrors.FatError {
	info, err := v.Info()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "root cluster: %d\n", info.RootCluster)
	fmt.Fprintf(w, "bytes per sector: %d\n", info.BytesPerSector)
	fmt.Fprintf(w, "sectors per cluster: %d\n", info.SectorsPerCluster)
	fmt.Fprintf(w, "total data clusters: %d\n", info.TotalDataClusters)
	fmt.Fprintf(w, "entries per FAT: %d\n", info.EntriesPerFAT)
	fmt.Fprintf(w, "image size: %d bytes\n", info.ImageSizeBytes)
	return nil
}

// Ls prints the trimmed short name of every valid entry in the current
// directory, one per line.
func Ls(v *volume.Volume, w io.Writer) ferrors.FatError {
	dir, err := currentDir(v)
	if err != nil {
		return err
	}

	for _, e := range dir.Entries() {
		fmt.Fprintln(w, shortname.Trim(e.Name))
	}
	return nil
}

// Cd moves the current directory to name, or to the parent directory when
// name is "..".
func Cd(v *volume.Volume, name string) ferrors.FatError {
	if name == ".." {
		if v.CurrentCluster() == v.RootCluster() {
			return nil
		}
		dir, err := currentDir(v)
		if err != nil {
			return err
		}
		parentCluster, err := dir.GetParentCluster(v.RootCluster())
		if err != nil {
			return err
		}
		v.SetCurrentCluster(parentCluster)
		v.PopDir()
		return nil
	}

	normalized, nerr := shortname.Normalize(name)
	if nerr != nil {
		return nerr
	}

	dir, err := currentDir(v)
	if err != nil {
		return err
	}

	result, _ := dir.Find(normalized)
	if !result.Present {
		return ferrors.NotFound
	}
	if !result.Entry.IsDir() || result.Entry.FirstCluster() == 0 {
		return ferrors.NotADirectory
	}

	v.SetCurrentCluster(result.Entry.FirstCluster())
	v.PushDir(name)
	return nil
}
