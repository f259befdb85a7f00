// Package super implements the on-disk superblock and the filesystem's
// region layout (spec.md sections 3 and 6), grounded on
// mit-pdos-go-nfsd/super/super.go's BitmapBlockStart/BitmapInodeStart/
// InodeStart/DataStart accessor chain and mit-pdos-go-nfsd/super's
// MkFsSuper sizing formula (bitmap blocks sized from total image size,
// not from the data region alone, avoiding the circular dependency of
// trying to size the bitmap from the data region it describes).
package super

import (
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/reviewfs/common"
)

// Magic identifies a formatted image.
const Magic uint32 = 0x52465653 // "RFVS"

// Version is the on-disk layout version this package writes and expects.
const Version uint32 = 1

// EncodedSize is the superblock's on-disk byte size (well under one
// block).
const EncodedSize = 56

// Superblock is block 0 of every formatted image.
type Superblock struct {
	Magic           uint32
	Version         uint32
	BlockSize       uint32
	TotalBlocks     common.Bnum
	TotalInodes     uint32
	FreeBlocks      uint32
	FreeInodes      uint32
	InodeTableStart common.Bnum
	BitmapStart     common.Bnum
	DataBlockStart  common.Bnum
	CreatedAt       int64
	ModifiedAt      int64
}

// Encode serializes the superblock to its fixed-size on-disk form.
func (s *Superblock) Encode() []byte {
	enc := marshal.NewEnc(EncodedSize)
	enc.PutInt32(s.Magic)
	enc.PutInt32(s.Version)
	enc.PutInt32(s.BlockSize)
	enc.PutInt32(uint32(s.TotalBlocks))
	enc.PutInt32(s.TotalInodes)
	enc.PutInt32(s.FreeBlocks)
	enc.PutInt32(s.FreeInodes)
	enc.PutInt32(uint32(s.InodeTableStart))
	enc.PutInt32(uint32(s.BitmapStart))
	enc.PutInt32(uint32(s.DataBlockStart))
	enc.PutInt(uint64(s.CreatedAt))
	enc.PutInt(uint64(s.ModifiedAt))
	return enc.Finish()
}

// EncodeBlock serializes the superblock and pads it out to a full block,
// ready to write to block 0.
func (s *Superblock) EncodeBlock() []byte {
	buf := make([]byte, common.BlockSize)
	copy(buf, s.Encode())
	return buf
}

// Decode parses a superblock from its on-disk form (a full block is
// passed in; only the leading EncodedSize bytes are consumed).
func Decode(block []byte) *Superblock {
	dec := marshal.NewDec(block[:EncodedSize])
	s := &Superblock{}
	s.Magic = dec.GetInt32()
	s.Version = dec.GetInt32()
	s.BlockSize = dec.GetInt32()
	s.TotalBlocks = common.Bnum(dec.GetInt32())
	s.TotalInodes = dec.GetInt32()
	s.FreeBlocks = dec.GetInt32()
	s.FreeInodes = dec.GetInt32()
	s.InodeTableStart = common.Bnum(dec.GetInt32())
	s.BitmapStart = common.Bnum(dec.GetInt32())
	s.DataBlockStart = common.Bnum(dec.GetInt32())
	s.CreatedAt = int64(dec.GetInt())
	s.ModifiedAt = int64(dec.GetInt())
	return s
}

// Layout is the region geometry derived from a total block count, computed
// once at format time and re-derived identically at mount from the
// persisted superblock fields.
type Layout struct {
	TotalBlocks     common.Bnum
	TotalInodes     uint32
	InodeTableStart common.Bnum
	BitmapStart     common.Bnum
	DataBlockStart  common.Bnum
}

func ceilDiv(n, d uint64) uint64 {
	return (n + d - 1) / d
}

// ComputeLayout derives the region layout for an image of totalBlocks
// blocks, following mit-pdos-go-nfsd/super.MkFsSuper's sizing formula:
// inode count from total size (floored at common.MinInodes), inode-table
// blocks from that count, and bitmap blocks sized to cover the whole
// image rather than just the (not-yet-known) data region.
func ComputeLayout(totalBlocks common.Bnum) Layout {
	totalInodes := uint64(totalBlocks) / 8
	if totalInodes < common.MinInodes {
		totalInodes = common.MinInodes
	}

	inodeTableStart := common.Bnum(1) // block 0 is the superblock
	inodeTableBlocks := ceilDiv(totalInodes*common.InodeSize, common.BlockSize)

	bitmapStart := inodeTableStart + common.Bnum(inodeTableBlocks)
	bitmapBlocks := ceilDiv(uint64(totalBlocks), common.BlockSize*8)
	if bitmapBlocks == 0 {
		bitmapBlocks = 1
	}

	dataBlockStart := bitmapStart + common.Bnum(bitmapBlocks)

	return Layout{
		TotalBlocks:     totalBlocks,
		TotalInodes:     uint32(totalInodes),
		InodeTableStart: inodeTableStart,
		BitmapStart:     bitmapStart,
		DataBlockStart:  dataBlockStart,
	}
}

// Super is the in-memory, mounted view of the superblock plus the derived
// layout accessors used throughout the rest of the core.
type Super struct {
	SB Superblock
}

// New builds a fresh Super for a newly formatted image.
func New(layout Layout) *Super {
	return &Super{SB: Superblock{
		Magic:           Magic,
		Version:         Version,
		BlockSize:       common.BlockSize,
		TotalBlocks:     layout.TotalBlocks,
		TotalInodes:     layout.TotalInodes,
		FreeBlocks:      uint32(layout.TotalBlocks) - uint32(layout.DataBlockStart),
		FreeInodes:      layout.TotalInodes - 1, // inode 1 (root) is taken
		InodeTableStart: layout.InodeTableStart,
		BitmapStart:     layout.BitmapStart,
		DataBlockStart:  layout.DataBlockStart,
	}}
}

// FromDecoded wraps an already-decoded on-disk superblock.
func FromDecoded(sb *Superblock) *Super {
	return &Super{SB: *sb}
}

func (s *Super) DataBlockCount() uint32 {
	return uint32(s.SB.TotalBlocks) - uint32(s.SB.DataBlockStart)
}

// InodesPerBlock is how many fixed 128-byte inodes fit in one block.
func InodesPerBlock() uint32 {
	return common.BlockSize / common.InodeSize
}

// InodeAddr returns the block number and byte offset within that block for
// inode number inum.
func (s *Super) InodeAddr(inum common.Inum) (common.Bnum, uint32) {
	perBlock := InodesPerBlock()
	blk := s.SB.InodeTableStart + common.Bnum(uint32(inum)/perBlock)
	off := (uint32(inum) % perBlock) * common.InodeSize
	return blk, off
}

// DataBlock converts a data-region-relative block index (as produced by
// the bitmap allocator) to an absolute block number.
func (s *Super) DataBlock(idx uint32) common.Bnum {
	return s.SB.DataBlockStart + common.Bnum(idx)
}

// DataIndex converts an absolute data block number back to its
// data-region-relative index, for freeing through the bitmap.
func (s *Super) DataIndex(b common.Bnum) uint32 {
	return uint32(b) - uint32(s.SB.DataBlockStart)
}
