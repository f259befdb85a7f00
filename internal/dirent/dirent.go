// Package dirent implements the fixed-size directory entry records of
// spec.md section 4 and the scan/add/remove operations over a directory
// inode's data blocks.
//
// Grounded on mit-pdos-go-nfsd/dir/dir.go's ScanName/AddNameDir/
// RemNameDir/IsDirEmpty walk and the legacy lookupLink/addLink/remLink
// helpers once at the module root. Unlike the teacher, entries here do
// not materialize "." and ".." (spec.md assigns that resolution to the
// path resolver instead, see internal/pathresolve), and directories are
// deliberately capped at the inode's direct blocks: ListEntries and
// FindEntry walk every allocated direct block, but AddEntry only grows
// the directory by one more direct block when every existing block is
// full, never reaching into the single-indirect block a regular file
// can use.
package dirent

import (
	"encoding/binary"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/reviewfs/common"
	"github.com/mit-pdos/reviewfs/internal/inode"
	"github.com/mit-pdos/reviewfs/internal/vfserrors"
)

// File type tags stored in a directory entry, independent of the mode
// bits stored in the inode itself.
const (
	FileTypeRegular uint8 = 1
	FileTypeDir     uint8 = 2
)

// DirEntry is one fixed 264-byte (common.DirEntSize) slot in a
// directory's data blocks.
type DirEntry struct {
	Inum     common.Inum
	FileType uint8
	Name     string
}

// dirEntHeaderSize is inode_num(4) + rec_len(2) + name_len(1) + file_type(1).
const dirEntHeaderSize = 8

func (e *DirEntry) encode() []byte {
	header := make([]byte, dirEntHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(e.Inum))
	binary.LittleEndian.PutUint16(header[4:6], uint16(common.DirEntSize))
	nameBytes := []byte(e.Name)
	header[6] = byte(len(nameBytes))
	header[7] = e.FileType

	enc := marshal.NewEnc(common.DirEntSize)
	enc.PutBytes(header)
	padded := make([]byte, common.NameMax)
	copy(padded, nameBytes)
	enc.PutBytes(padded)
	enc.PutBytes(make([]byte, common.DirEntSize-dirEntHeaderSize-common.NameMax))
	return enc.Finish()
}

func decodeEntry(data []byte) DirEntry {
	dec := marshal.NewDec(data[:common.DirEntSize])
	header := dec.GetBytes(dirEntHeaderSize)
	inum := common.Inum(binary.LittleEndian.Uint32(header[0:4]))
	nameLen := header[6]
	fileType := header[7]
	name := dec.GetBytes(uint64(common.NameMax))
	if int(nameLen) > len(name) {
		nameLen = byte(len(name))
	}
	return DirEntry{Inum: inum, FileType: fileType, Name: string(name[:nameLen])}
}

// BlockReader reads one block by absolute block number.
type BlockReader interface {
	ReadBlock(id common.Bnum) ([]byte, error)
}

// BlockWriter writes one full block by absolute block number.
type BlockWriter interface {
	WriteBlock(id common.Bnum, buf []byte) error
}

// ListEntries returns every live (non-deleted) entry across all of dir's
// allocated direct blocks.
func ListEntries(dev BlockReader, dir *inode.Inode) ([]DirEntry, error) {
	var out []DirEntry
	for _, bnum := range dir.Direct {
		if bnum == common.NullBnum {
			continue
		}
		blk, err := dev.ReadBlock(bnum)
		if err != nil {
			return nil, err
		}
		for i := 0; i < common.DirEntsPerBlock; i++ {
			e := decodeEntry(blk[i*common.DirEntSize : (i+1)*common.DirEntSize])
			if e.Inum != common.NullInum {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// FindEntry returns the live entry named name in dir, if any.
func FindEntry(dev BlockReader, dir *inode.Inode, name string) (*DirEntry, error) {
	for _, bnum := range dir.Direct {
		if bnum == common.NullBnum {
			continue
		}
		blk, err := dev.ReadBlock(bnum)
		if err != nil {
			return nil, err
		}
		for i := 0; i < common.DirEntsPerBlock; i++ {
			e := decodeEntry(blk[i*common.DirEntSize : (i+1)*common.DirEntSize])
			if e.Inum != common.NullInum && e.Name == name {
				return &e, nil
			}
		}
	}
	return nil, nil
}

// AddEntry inserts a new (inum, name, fileType) entry into the first free
// slot of dir, allocating one more direct block if every existing
// allocated block is full. Returns vfserrors.NoBlocks once dir has used
// all common.DirectCount direct blocks and every slot in them is live.
func AddEntry(dev BlockReader, bw BlockWriter, alloc inode.Allocator, dir *inode.Inode, inum common.Inum, name string, fileType uint8) error {
	if len(name) > common.NameMax {
		return vfserrors.New("dirent.AddEntry", name, vfserrors.NameTooLong)
	}

	entry := DirEntry{Inum: inum, FileType: fileType, Name: name}

	for slot := 0; slot < common.DirectCount; slot++ {
		bnum := dir.Direct[slot]
		if bnum == common.NullBnum {
			id, ok := alloc.Allocate()
			if !ok {
				return vfserrors.New("dirent.AddEntry", name, vfserrors.NoBlocks)
			}
			dir.Direct[slot] = id
			dir.BlocksCount++
			blk := make([]byte, common.BlockSize)
			copy(blk[0:common.DirEntSize], entry.encode())
			if err := bw.WriteBlock(id, blk); err != nil {
				return err
			}
			bumpDirSize(dir)
			return nil
		}

		blk, err := dev.ReadBlock(bnum)
		if err != nil {
			return err
		}
		for i := 0; i < common.DirEntsPerBlock; i++ {
			off := i * common.DirEntSize
			existing := decodeEntry(blk[off : off+common.DirEntSize])
			if existing.Inum == common.NullInum {
				cp := make([]byte, common.BlockSize)
				copy(cp, blk)
				copy(cp[off:off+common.DirEntSize], entry.encode())
				bumpDirSize(dir)
				return bw.WriteBlock(bnum, cp)
			}
		}
	}

	return vfserrors.New("dirent.AddEntry", name, vfserrors.NoBlocks)
}

func bumpDirSize(dir *inode.Inode) {
	dir.Size += common.DirEntSize
}

func shrinkDirSize(dir *inode.Inode) {
	if dir.Size >= common.DirEntSize {
		dir.Size -= common.DirEntSize
	} else {
		dir.Size = 0
	}
}

// RemoveEntry clears the slot named name in dir, if present, and reports
// whether it found and removed one.
func RemoveEntry(dev BlockReader, bw BlockWriter, dir *inode.Inode, name string) (bool, error) {
	for _, bnum := range dir.Direct {
		if bnum == common.NullBnum {
			continue
		}
		blk, err := dev.ReadBlock(bnum)
		if err != nil {
			return false, err
		}
		for i := 0; i < common.DirEntsPerBlock; i++ {
			off := i * common.DirEntSize
			existing := decodeEntry(blk[off : off+common.DirEntSize])
			if existing.Inum != common.NullInum && existing.Name == name {
				cp := make([]byte, common.BlockSize)
				copy(cp, blk)
				for j := off; j < off+common.DirEntSize; j++ {
					cp[j] = 0
				}
				if err := bw.WriteBlock(bnum, cp); err != nil {
					return false, err
				}
				shrinkDirSize(dir)
				return true, nil
			}
		}
	}
	return false, nil
}

// IsEmpty reports whether dir has no live entries at all. Since this
// package never materializes "." and "..", an empty directory has zero
// entries rather than exactly two.
func IsEmpty(dev BlockReader, dir *inode.Inode) (bool, error) {
	entries, err := ListEntries(dev, dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
