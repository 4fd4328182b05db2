// Package shortname implements FAT8.3 short-name normalization: uppercase
// ASCII, right-padded with spaces to 11 bytes, split into the 8-byte name
// and 3-byte extension fields used by directory entries.
package shortname

import (
	"strings"

	"github.com/mharlan/fat32vol/ferrors"
)

// Len is the fixed width of a normalized short name.
const Len = 11

// Normalize uppercases name, splits it on the last '.', and returns the
// 11-byte space-padded on-disk representation. Names (including extension)
// longer than 8.3 characters fail with ferrors.BadArgs.
func Normalize(name string) ([Len]byte, ferrors.FatError) {
	var out [Len]byte
	for i := range out {
		out[i] = ' '
	}

	if name == "" {
		return out, ferrors.BadArgs.WithMessage("name is empty")
	}

	upper := strings.ToUpper(name)

	base := upper
	ext := ""
	if dot := strings.LastIndexByte(upper, '.'); dot >= 0 {
		base = upper[:dot]
		ext = upper[dot+1:]
	}

	if len(base) == 0 || len(base) > 8 {
		return out, ferrors.BadArgs.WithMessage("base name must be 1-8 characters")
	}
	if len(ext) > 3 {
		return out, ferrors.BadArgs.WithMessage("extension must be at most 3 characters")
	}

	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out, nil
}

// Trim returns the printable form of an on-disk 11-byte short name: the base
// and extension, trimmed of trailing spaces, joined with a '.' when an
// extension is present.
func Trim(raw [Len]byte) string {
	base := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}
