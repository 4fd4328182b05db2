// Package imageio is the positional reader/writer over an opened FAT32
// image file. It owns the file handle and never assumes a cursor carries
// between calls: every read and write is addressed by an explicit byte
// offset, matching spec.md section 4.1.
package imageio

import (
	"io"
	"os"
	"syscall"

	"github.com/mharlan/fat32vol/ferrors"
)

// Image is the positional handle to a mounted disk image. Anything
// satisfying io.ReaderAt/io.WriterAt/io.Closer works, so tests can back an
// Image with an in-memory buffer instead of a real file.
type Image struct {
	handle io.ReaderAt
	writer io.WriterAt
	closer io.Closer
	sizer  func() (int64, error)
	path   string
}

// Open opens path read-write. A missing file or one that can't be opened
// for read-write access fails with ferrors.ImageNotFound.
func Open(path string) (*Image, ferrors.FatError) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, ferrors.ImageNotFound.WrapError(err)
	}

	return &Image{
		handle: f,
		writer: f,
		closer: f,
		sizer: func() (int64, error) {
			info, err := f.Stat()
			if err != nil {
				return 0, err
			}
			return info.Size(), nil
		},
		path: path,
	}, nil
}

// NewFromReadWriteSeeker wraps an already-open stream (typically an
// in-memory image used by tests) as an Image.
func NewFromReadWriteSeeker(path string, stream io.ReadWriteSeeker) (*Image, ferrors.FatError) {
	raw, ok := stream.(interface {
		io.ReaderAt
		io.WriterAt
	})
	if !ok {
		return nil, ferrors.ImageNotFound.WithMessage("stream does not support positional I/O")
	}

	sizer := func() (int64, error) {
		cur, err := stream.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		end, err := stream.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		if _, err := stream.Seek(cur, io.SeekStart); err != nil {
			return 0, err
		}
		return end, nil
	}

	closer, _ := stream.(io.Closer)
	return &Image{handle: raw, writer: raw, closer: closer, sizer: sizer, path: path}, nil
}

// Path returns the path the image was opened from.
func (img *Image) Path() string { return img.path }

// Size returns the total size of the image, in bytes.
func (img *Image) Size() (int64, ferrors.FatError) {
	n, err := img.sizer()
	if err != nil {
		return 0, ferrors.ImageIOError.WrapError(err)
	}
	return n, nil
}

// ReadAt reads exactly n bytes starting at byteOffset.
func (img *Image) ReadAt(byteOffset int64, n int) ([]byte, ferrors.FatError) {
	buf := make([]byte, n)
	read, err := img.handle.ReadAt(buf, byteOffset)
	if err != nil && err != io.EOF {
		return nil, ferrors.ImageIOError.WrapError(err)
	}
	if read < n {
		return nil, ferrors.ImageIOError.WrapError(syscall.EIO)
	}
	return buf, nil
}

// WriteAt writes data starting at byteOffset.
func (img *Image) WriteAt(byteOffset int64, data []byte) ferrors.FatError {
	written, err := img.writer.WriteAt(data, byteOffset)
	if err != nil {
		return ferrors.ImageIOError.WrapError(err)
	}
	if written < len(data) {
		return ferrors.ImageIOError.WrapError(syscall.EIO)
	}
	return nil
}

// Close releases the underlying handle. Closing an already-closed Image, or
// one with no closer (an in-memory test stream), is a no-op.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	err := img.closer.Close()
	img.closer = nil
	return err
}
