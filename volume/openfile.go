package volume

import (
	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/shortname"
)

// FindOpenByName returns the index of the open-file row holding name, or -1
// if it isn't open.
func (v *Volume) FindOpenByName(name [11]byte) int {
	target := shortname.Trim(name)
	for i := range v.openFiles {
		if v.openFiles[i].InUse && shortname.Trim(v.openFiles[i].Name) == target {
			return i
		}
	}
	return -1
}

// IsOpen reports whether name is currently open.
func (v *Volume) IsOpen(name [11]byte) bool {
	return v.FindOpenByName(name) >= 0
}

// IsPathOpen reports whether any open file's captured path equals path. Used
// by rmdir to block removing a directory an open file was opened from.
func (v *Volume) IsPathOpen(path string) bool {
	for i := range v.openFiles {
		if v.openFiles[i].InUse && v.openFiles[i].Path == path {
			return true
		}
	}
	return false
}

// AllocateOpenRow finds a free row in the open-file table, fails with
// ferrors.TooManyOpen if all MaxOpenFiles rows are in use.
func (v *Volume) AllocateOpenRow() (int, ferrors.FatError) {
	for i := range v.openFiles {
		if !v.openFiles[i].InUse {
			return i, nil
		}
	}
	return -1, ferrors.TooManyOpen
}

// OpenRow returns a pointer to open-file row i for in-place mutation
// (offset updates, etc).
func (v *Volume) OpenRow(i int) *OpenFile { return &v.openFiles[i] }

// CloseRow zeroes open-file row i, returning it to the Free state.
func (v *Volume) CloseRow(i int) { v.openFiles[i] = OpenFile{} }

// OpenRows returns every in-use row, for `lsof`.
func (v *Volume) OpenRows() []OpenFile {
	out := make([]OpenFile, 0, MaxOpenFiles)
	for i := range v.openFiles {
		if v.openFiles[i].InUse {
			out = append(out, v.openFiles[i])
		}
	}
	return out
}

// IndexedOpenFile pairs an open-file row with its slot in the table, so
// `lsof` can print the index the table actually uses (needed for any future
// close-by-index command).
type IndexedOpenFile struct {
	Index int
	OpenFile
}

// ForEachOpen returns every in-use row together with its table index.
func (v *Volume) ForEachOpen() []IndexedOpenFile {
	out := make([]IndexedOpenFile, 0, MaxOpenFiles)
	for i := range v.openFiles {
		if v.openFiles[i].InUse {
			out = append(out, IndexedOpenFile{Index: i, OpenFile: v.openFiles[i]})
		}
	}
	return out
}
