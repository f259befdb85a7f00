package vfs

import (
	"os"

	"github.com/mit-pdos/reviewfs/common"
	"github.com/mit-pdos/reviewfs/internal/bitmap"
	"github.com/mit-pdos/reviewfs/internal/checksum"
	"github.com/mit-pdos/reviewfs/internal/inode"
	"github.com/mit-pdos/reviewfs/internal/super"
)

// writeInodeRaw writes one inode directly through dev, used only at
// format time before a cache exists to mediate the write.
func writeInodeRaw(dev blockDevice, sb *super.Super, in *inode.Inode) error {
	blkNum, off := sb.InodeAddr(in.Number)
	blk, err := dev.ReadBlock(blkNum)
	if err != nil {
		return err
	}
	cp := make([]byte, common.BlockSize)
	copy(cp, blk)
	copy(cp[off:off+common.InodeSize], in.Encode())
	return dev.WriteBlock(blkNum, cp)
}

// writeBitmapRegion serializes bm and writes it across the bitmap
// region's blocks, zero-padding the final block.
func writeBitmapRegion(dev blockDevice, sb *super.Super, bm *bitmap.Bitmap) error {
	data := bm.Bytes()
	bitmapBlocks := uint32(sb.SB.DataBlockStart - sb.SB.BitmapStart)
	for i := uint32(0); i < bitmapBlocks; i++ {
		blk := make([]byte, common.BlockSize)
		start := int(i) * common.BlockSize
		end := start + common.BlockSize
		if start < len(data) {
			if end > len(data) {
				end = len(data)
			}
			copy(blk, data[start:end])
		}
		if err := dev.WriteBlock(sb.SB.BitmapStart+common.Bnum(i), blk); err != nil {
			return err
		}
	}
	return nil
}

// loadBitmapRegion reads the bitmap region's blocks back into a Bitmap
// sized for the image's data block count.
func loadBitmapRegion(dev blockDevice, sb *super.Super) (*bitmap.Bitmap, error) {
	bitmapBlocks := uint32(sb.SB.DataBlockStart - sb.SB.BitmapStart)
	data := make([]byte, 0, bitmapBlocks*common.BlockSize)
	for i := uint32(0); i < bitmapBlocks; i++ {
		blk, err := dev.ReadBlock(sb.SB.BitmapStart + common.Bnum(i))
		if err != nil {
			return nil, err
		}
		data = append(data, blk...)
	}
	bm := bitmap.New(sb.DataBlockCount())
	bm.Load(data, sb.DataBlockCount())
	return bm, nil
}

// saveChecksums persists the checksum table to its sidecar file.
func saveChecksums(image string, table *checksum.Table) error {
	f, err := os.OpenFile(checksumPath(image), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	defer f.Close()
	return table.Save(f)
}
