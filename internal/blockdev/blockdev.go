// Package blockdev implements the lowest layer of the filesystem: a fixed
// block-size, random-access view over the host image file, grounded on
// github.com/mit-pdos/go-journal/disk's fileDisk (Pread/Pwrite/Fsync over a
// raw fd via golang.org/x/sys/unix).
package blockdev

import (
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/reviewfs/common"
	"github.com/mit-pdos/reviewfs/internal/vfserrors"
)

// Device is a seekable, block-addressed view over a host image file.
type Device struct {
	fd        int
	numBlocks common.Bnum
}

// Open opens (creating if needed) the image file at path and truncates it
// to hold numBlocks blocks. Open does not know about the reserved
// metadata regions at the start of the image (superblock, inode table,
// bitmap); keeping those blocks away from the data-block allocator is
// left to the callers in the allocator path.
func Open(path string, numBlocks common.Bnum) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0o666)
	if err != nil {
		return nil, vfserrors.Wrap("blockdev.Open", path, vfserrors.IOError, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, vfserrors.Wrap("blockdev.Open", path, vfserrors.IOError, err)
	}
	wantSize := int64(numBlocks) * common.BlockSize
	if st.Size != wantSize {
		if err := unix.Ftruncate(fd, wantSize); err != nil {
			unix.Close(fd)
			return nil, vfserrors.Wrap("blockdev.Open", path, vfserrors.IOError, err)
		}
	}
	return &Device{fd: fd, numBlocks: numBlocks}, nil
}

// OpenExisting opens an already-formatted image without resizing it;
// numBlocks is discovered from the file size.
func OpenExisting(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0o666)
	if err != nil {
		return nil, vfserrors.Wrap("blockdev.Open", path, vfserrors.IOError, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, vfserrors.Wrap("blockdev.Open", path, vfserrors.IOError, err)
	}
	return &Device{fd: fd, numBlocks: common.Bnum(st.Size / common.BlockSize)}, nil
}

// Size reports the device's size in blocks.
func (d *Device) Size() common.Bnum {
	return d.numBlocks
}

// ReadBlock reads the block at id into a freshly allocated buffer.
func (d *Device) ReadBlock(id common.Bnum) ([]byte, error) {
	if id >= d.numBlocks {
		return nil, vfserrors.New("blockdev.ReadBlock", "", vfserrors.IOError)
	}
	buf := make([]byte, common.BlockSize)
	n, err := unix.Pread(d.fd, buf, int64(id)*common.BlockSize)
	if err != nil {
		return nil, vfserrors.Wrap("blockdev.ReadBlock", "", vfserrors.IOError, err)
	}
	if n != common.BlockSize {
		return nil, vfserrors.New("blockdev.ReadBlock", "", vfserrors.IOError)
	}
	return buf, nil
}

// WriteBlock writes exactly BlockSize bytes of buf to the block at id. On
// failure the caller must not treat the block as durably written: no
// partial effect on the image's durability guarantees is implied by a
// returned error.
func (d *Device) WriteBlock(id common.Bnum, buf []byte) error {
	if len(buf) != common.BlockSize {
		return vfserrors.New("blockdev.WriteBlock", "", vfserrors.Invalid)
	}
	if id >= d.numBlocks {
		return vfserrors.New("blockdev.WriteBlock", "", vfserrors.IOError)
	}
	n, err := unix.Pwrite(d.fd, buf, int64(id)*common.BlockSize)
	if err != nil {
		return vfserrors.Wrap("blockdev.WriteBlock", "", vfserrors.IOError, err)
	}
	if n != common.BlockSize {
		return vfserrors.New("blockdev.WriteBlock", "", vfserrors.IOError)
	}
	return nil
}

// Zero zero-fills every block in [from, to).
func (d *Device) Zero(from, to common.Bnum) error {
	zero := make([]byte, common.BlockSize)
	for b := from; b < to; b++ {
		if err := d.WriteBlock(b, zero); err != nil {
			return err
		}
	}
	return nil
}

// Sync issues a durability barrier: when it returns, every write issued
// before it is guaranteed durable.
func (d *Device) Sync() error {
	if err := unix.Fsync(d.fd); err != nil {
		return vfserrors.Wrap("blockdev.Sync", "", vfserrors.IOError, err)
	}
	return nil
}

// Close releases the underlying file descriptor.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
